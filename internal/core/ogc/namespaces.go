// Package ogc holds the OGC/OWS building blocks shared by every SOS
// operation: the document tree and its writer, exception reports, version
// negotiation and the namespace tables.
package ogc

import "strings"

const (
	NSOWS   = "http://www.opengis.net/ows/1.1"
	NSXSI   = "http://www.w3.org/2001/XMLSchema-instance"
	NSXLink = "http://www.w3.org/1999/xlink"

	Version200 = "2.0.0"
	Version110 = "1.1.0"
	Version100 = "1.0.0"

	ServiceSOS = "SOS"
)

var capabilitiesAttrs200 = []Attr{
	{Name: "xmlns:sos", Value: "http://www.opengis.net/sos/2.0"},
	{Name: "xmlns:swes", Value: "http://www.opengis.net/swes/2.0"},
	{Name: "xmlns:ows", Value: NSOWS},
	{Name: "xmlns:fes", Value: "http://www.opengis.net/fes/2.0"},
	{Name: "xmlns:gml", Value: "http://www.opengis.net/gml/3.2"},
	{Name: "xmlns:xlink", Value: NSXLink},
	{Name: "xmlns:xsi", Value: NSXSI},
	{Name: "xsi:schemaLocation", Value: "http://www.opengis.net/sos/2.0 http://schemas.opengis.net/sos/2.0/sosGetCapabilities.xsd"},
}

var capabilitiesAttrsLegacy = []Attr{
	{Name: "xmlns:sos", Value: "http://www.opengis.net/sos/1.0"},
	{Name: "xmlns:ows", Value: NSOWS},
	{Name: "xmlns:ogc", Value: "http://www.opengis.net/ogc"},
	{Name: "xmlns:gml", Value: "http://www.opengis.net/gml"},
	{Name: "xmlns:om", Value: "http://www.opengis.net/om/1.0"},
	{Name: "xmlns:xlink", Value: NSXLink},
	{Name: "xmlns:xsi", Value: NSXSI},
	{Name: "xsi:schemaLocation", Value: "http://www.opengis.net/sos/1.0 http://schemas.opengis.net/sos/1.0.0/sosGetCapabilities.xsd"},
}

// IsV2 reports whether version selects the 2.0 document family.
func IsV2(version string) bool {
	return strings.HasPrefix(strings.TrimSpace(version), "2.")
}

// CapabilitiesAttrs returns the root namespace/schema attributes for version,
// followed by the version attribute itself.
func CapabilitiesAttrs(version string) []Attr {
	base := capabilitiesAttrsLegacy
	if IsV2(version) {
		base = capabilitiesAttrs200
	}
	out := make([]Attr, 0, len(base)+1)
	out = append(out, base...)
	return append(out, Attr{Name: "version", Value: version})
}

// FilterPrefix is "fes" for 2.0 documents and "ogc" for the legacy ones.
func FilterPrefix(version string) string {
	if IsV2(version) {
		return "fes"
	}
	return "ogc"
}
