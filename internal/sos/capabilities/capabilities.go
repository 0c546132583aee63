// Package capabilities builds the GetCapabilities document.
package capabilities

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/sos-gateway/internal/sos/filtercaps"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

type Builder struct {
	describer      ServiceDescriber
	publicURL      string
	acceptVersions []string
	logger         *slog.Logger
}

func New(describer ServiceDescriber, publicURL string, acceptVersions []string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		describer:      describer,
		publicURL:      strings.TrimRight(publicURL, "?"),
		acceptVersions: append([]string(nil), acceptVersions...),
		logger:         logger,
	}
}

// Build queries offerings and observed properties through sess and
// assembles the complete document for version.
func (b *Builder) Build(ctx context.Context, sess storage.Session, version string) (*ogc.Node, error) {
	offerings, err := sess.Offerings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offerings: %w", err)
	}
	props, err := sess.ObservedProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observed properties: %w", err)
	}

	d := domains{
		acceptVersions:     b.acceptVersions,
		offeringIDs:        offeringIDs(offerings),
		observedProperties: props,
		procedures:         procedureIDs(offerings),
	}

	root := ogc.Element("sos:Capabilities").AttrsFrom(ogc.CapabilitiesAttrs(version))
	root.Add(
		b.describer.ServiceIdentification(version),
		b.describer.ServiceProvider(version),
		operationsMetadata(b.publicURL, d),
		contentsNode(version, offerings),
		filterSection(version),
	)
	return root, nil
}

// Serve builds the whole document before the first write.
func (b *Builder) Serve(ctx context.Context, w http.ResponseWriter, sess storage.Session, req model.Request) error {
	doc, err := b.Build(ctx, sess, req.Version)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := ogc.Write(w, doc); err != nil {
		return fmt.Errorf("stream capabilities: %w", err)
	}
	b.logger.DebugContext(ctx, "capabilities served", "version", req.Version)
	return nil
}

func filterSection(version string) *ogc.Node {
	fc := filtercaps.Build(version)
	if ogc.IsV2(version) {
		return ogc.Element("sos:filterCapabilities").Add(fc)
	}
	return ogc.Element("sos:Filter_Capabilities").Add(fc.Children...)
}

func offeringIDs(offerings []model.Offering) []string {
	out := make([]string, 0, len(offerings))
	for _, o := range offerings {
		out = append(out, o.ID)
	}
	return out
}

func procedureIDs(offerings []model.Offering) []string {
	seen := make(map[string]struct{}, len(offerings))
	var out []string
	for _, o := range offerings {
		if o.Procedure == "" {
			continue
		}
		if _, ok := seen[o.Procedure]; ok {
			continue
		}
		seen[o.Procedure] = struct{}{}
		out = append(out, o.Procedure)
	}
	return out
}
