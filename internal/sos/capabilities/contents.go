package capabilities

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
)

// contentNames maps each Contents field to its element name for one
// document family.
type contentNames struct {
	section      string
	contents     string
	list         string
	entry        string
	offering     string
	identifier   string
	description  string
	name         string
	area         string
	time         string
	procedure    string
	property     string
	feature      string
	format       string
	resultModel  string
	responseMode string
}

var contentsV2 = contentNames{
	section:      "sos:contents",
	contents:     "sos:Contents",
	entry:        "swes:offering",
	offering:     "sos:ObservationOffering",
	identifier:   "swes:identifier",
	description:  "swes:description",
	name:         "swes:name",
	area:         "sos:observedArea",
	time:         "sos:phenomenonTime",
	procedure:    "swes:procedure",
	property:     "swes:observableProperty",
	feature:      "sos:featureOfInterest",
	format:       "sos:responseFormat",
	resultModel:  "sos:observationType",
	responseMode: "sos:responseMode",
}

var contentsLegacy = contentNames{
	contents:     "sos:Contents",
	list:         "sos:ObservationOfferingList",
	offering:     "sos:ObservationOffering",
	description:  "gml:description",
	name:         "gml:name",
	area:         "gml:boundedBy",
	time:         "sos:time",
	procedure:    "sos:procedure",
	property:     "sos:observedProperty",
	feature:      "sos:featureOfInterest",
	format:       "sos:responseFormat",
	resultModel:  "sos:resultModel",
	responseMode: "sos:responseMode",
}

func namesFor(version string) contentNames {
	if ogc.IsV2(version) {
		return contentsV2
	}
	return contentsLegacy
}

// contentsNode lists offerings in storage order; list-valued fields keep
// their stored order too.
func contentsNode(version string, offerings []model.Offering) *ogc.Node {
	names := namesFor(version)
	contents := ogc.Element(names.contents)
	parent := contents
	if names.list != "" {
		parent = ogc.Element(names.list)
		contents.Add(parent)
	}
	ids := make(map[string]bool, len(offerings))
	for _, o := range offerings {
		off := offeringNode(names, o, uniqueID(ids, ncName(o.ID)))
		if names.entry != "" {
			off = ogc.Element(names.entry).Add(off)
		}
		parent.Add(off)
	}
	if names.section != "" {
		return ogc.Element(names.section).Add(contents)
	}
	return contents
}

func offeringNode(names contentNames, o model.Offering, gmlID string) *ogc.Node {
	n := ogc.Element(names.offering).Attr("gml:id", gmlID)
	if names.identifier != "" {
		n.Add(ogc.TextElement(names.identifier, o.ID))
	}
	if o.Description != "" {
		n.Add(ogc.TextElement(names.description, o.Description))
	}
	if o.Name != "" {
		n.Add(ogc.TextElement(names.name, o.Name))
	}
	if !o.Envelope.IsZero() {
		n.Add(ogc.Element(names.area).Add(envelopeNode(o.Envelope)))
	}
	if o.Begin != "" || o.End != "" {
		n.Add(ogc.Element(names.time).Add(
			ogc.Element("gml:TimePeriod").Attr("gml:id", "tp_"+gmlID).Add(
				ogc.TextElement("gml:beginPosition", o.Begin),
				ogc.TextElement("gml:endPosition", o.End),
			),
		))
	}
	if o.Procedure != "" {
		n.Add(ogc.Element(names.procedure).Attr("xlink:href", o.Procedure))
	}
	for _, p := range o.Properties {
		n.Add(ogc.Element(names.property).Attr("xlink:href", p))
	}
	for _, f := range o.FeaturesOfInterest {
		n.Add(ogc.Element(names.feature).Attr("xlink:href", f))
	}
	for _, f := range o.ResponseFormats {
		n.Add(ogc.TextElement(names.format, f))
	}
	if o.ResultModel != "" {
		n.Add(ogc.TextElement(names.resultModel, o.ResultModel))
	}
	if o.ResponseMode != "" {
		n.Add(ogc.TextElement(names.responseMode, o.ResponseMode))
	}
	return n
}

func envelopeNode(e model.Envelope) *ogc.Node {
	env := ogc.Element("gml:Envelope")
	if e.SRSName != "" {
		env.Attr("srsName", e.SRSName)
	}
	if e.LowerCorner == "" && e.UpperCorner == "" {
		return env.Text(e.Raw)
	}
	return env.Add(
		ogc.TextElement("gml:lowerCorner", e.LowerCorner),
		ogc.TextElement("gml:upperCorner", e.UpperCorner),
	)
}

// ncName maps an offering id onto a valid xml NCName; URN separators and
// other disallowed runes become '_'.
func ncName(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			if i == 0 && (r == '-' || r == '.' || unicode.IsDigit(r)) {
				b.WriteString("o_")
				b.WriteRune(r)
				continue
			}
			r = '_'
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "o_"
	}
	return b.String()
}

// uniqueID suffixes repeats so sanitized ids stay distinct in one document.
func uniqueID(used map[string]bool, id string) string {
	cand := id
	for i := 2; used[cand]; i++ {
		cand = fmt.Sprintf("%s_%d", id, i)
	}
	used[cand] = true
	return cand
}
