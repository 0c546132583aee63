package capabilities

import "github.com/mohammed-shakir/sos-gateway/internal/core/ogc"

// source names where a parameter's allowed values come from at build time.
type source int

const (
	srcStatic source = iota
	srcNoValues
	srcAcceptVersions
	srcOfferingIDs
	srcObservedProperties
	srcProcedures
)

type parameter struct {
	name   string
	from   source
	values []string
}

type operation struct {
	name   string
	params []parameter
}

var operations = []operation{
	{
		name: "GetCapabilities",
		params: []parameter{
			{name: "service", values: []string{ogc.ServiceSOS}},
			{name: "AcceptVersions", from: srcAcceptVersions},
			{name: "Sections", values: []string{
				"ServiceIdentification", "ServiceProvider", "OperationsMetadata", "Contents", "Filter_Capabilities", "All",
			}},
			{name: "AcceptFormats", values: []string{"text/xml"}},
		},
	},
	{
		name: "GetObservation",
		params: []parameter{
			{name: "service", values: []string{ogc.ServiceSOS}},
			{name: "version", from: srcAcceptVersions},
			{name: "offering", from: srcOfferingIDs},
			{name: "observedProperty", from: srcObservedProperties},
			{name: "procedure", from: srcProcedures},
			{name: "eventTime", from: srcNoValues},
			{name: "featureOfInterest", from: srcNoValues},
			{name: "responseFormat", values: []string{"application/json"}},
			{name: "resultModel", from: srcNoValues},
			{name: "responseMode", values: []string{"inline"}},
		},
	},
}

// domains holds the dynamic values resolved for one document.
type domains struct {
	acceptVersions     []string
	offeringIDs        []string
	observedProperties []string
	procedures         []string
}

func (d domains) values(p parameter) []string {
	switch p.from {
	case srcAcceptVersions:
		return d.acceptVersions
	case srcOfferingIDs:
		return d.offeringIDs
	case srcObservedProperties:
		return d.observedProperties
	case srcProcedures:
		return d.procedures
	case srcNoValues:
		return nil
	default:
		return p.values
	}
}

func operationsMetadata(publicURL string, d domains) *ogc.Node {
	om := ogc.Element("ows:OperationsMetadata")
	for _, op := range operations {
		n := ogc.Element("ows:Operation").Attr("name", op.name).Add(
			ogc.Element("ows:DCP").Add(
				ogc.Element("ows:HTTP").Add(
					ogc.Element("ows:Get").Attr("xlink:href", publicURL+"?"),
					ogc.Element("ows:Post").Attr("xlink:href", publicURL),
				),
			),
		)
		for _, p := range op.params {
			n.Add(parameterNode(p.name, d.values(p)))
		}
		om.Add(n)
	}
	return om
}

// parameterNode emits ows:NoValues for an empty domain.
func parameterNode(name string, values []string) *ogc.Node {
	n := ogc.Element("ows:Parameter").Attr("name", name)
	if len(values) == 0 {
		return n.Add(ogc.Element("ows:NoValues"))
	}
	allowed := ogc.Element("ows:AllowedValues")
	for _, v := range values {
		allowed.Add(ogc.TextElement("ows:Value", v))
	}
	return n.Add(allowed)
}
