package capabilities

import (
	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
)

// ServiceDescriber supplies the ServiceIdentification and ServiceProvider
// sections.
type ServiceDescriber interface {
	ServiceIdentification(version string) *ogc.Node
	ServiceProvider(version string) *ogc.Node
}

// ConfigDescriber describes the service from static configuration.
type ConfigDescriber struct {
	Info config.ServiceInfo
}

func (d ConfigDescriber) ServiceIdentification(version string) *ogc.Node {
	stv := d.Info.ServiceTypeVersion
	if stv == "" {
		stv = version
	}
	n := ogc.Element("ows:ServiceIdentification").Add(
		ogc.TextElement("ows:Title", d.Info.Title),
	)
	if d.Info.Abstract != "" {
		n.Add(ogc.TextElement("ows:Abstract", d.Info.Abstract))
	}
	return n.Add(
		ogc.Element("ows:ServiceType").Attr("codeSpace", "http://opengeospatial.net").Text("OGC:SOS"),
		ogc.TextElement("ows:ServiceTypeVersion", stv),
		ogc.TextElement("ows:Fees", orNone(d.Info.Fees)),
		ogc.TextElement("ows:AccessConstraints", orNone(d.Info.AccessConstraints)),
	)
}

func (d ConfigDescriber) ServiceProvider(string) *ogc.Node {
	n := ogc.Element("ows:ServiceProvider").Add(
		ogc.TextElement("ows:ProviderName", d.Info.ProviderName),
	)
	if d.Info.ProviderSite != "" {
		n.Add(ogc.Element("ows:ProviderSite").Attr("xlink:href", d.Info.ProviderSite))
	}
	return n
}

func orNone(s string) string {
	if s == "" {
		return "NONE"
	}
	return s
}
