// Package filtercaps declares the filter operators and functions the
// service advertises. The output depends on the protocol version only.
package filtercaps

import "github.com/mohammed-shakir/sos-gateway/internal/core/ogc"

type constraint struct {
	name      string
	supported bool
}

var conformance = []constraint{
	{"ImplementsQuery", true},
	{"ImplementsAdHocQuery", false},
	{"ImplementsFunctions", true},
	{"ImplementsMinStandardFilter", true},
	{"ImplementsSpatialFilter", true},
	{"ImplementsTemporalFilter", true},
	{"ImplementsSorting", false},
	{"ImplementsVersionNav", false},
	{"ImplementsExtendedOperators", false},
}

var comparisonOperators = []string{
	"LessThan",
	"GreaterThan",
	"LessThanOrEqualTo",
	"GreaterThanOrEqualTo",
	"EqualTo",
	"NotEqualTo",
	"Like",
	"Between",
	"Null",
}

var logicalOperators = []string{"And", "Or", "Not"}

var geometryOperands = []string{
	"gml:Envelope",
	"gml:Point",
	"gml:LineString",
	"gml:Polygon",
}

var spatialOperators = []string{
	"BBOX",
	"Equals",
	"Disjoint",
	"Intersects",
	"Touches",
	"Crosses",
	"Within",
	"Contains",
	"Overlaps",
	"Beyond",
	"DWithin",
}

var temporalOperands = []string{"gml:TimeInstant", "gml:TimePeriod"}

var temporalOperators = []string{
	"After",
	"Before",
	"Begins",
	"BegunBy",
	"TContains",
	"During",
	"TEquals",
	"TOverlaps",
	"Meets",
	"OverlappedBy",
	"MetBy",
	"Ends",
	"EndedBy",
}

type argument struct {
	name string
	typ  string
}

type function struct {
	name    string
	returns string
	args    []argument
}

var functions = []function{
	{"abs", "xs:double", []argument{{"value", "xs:double"}}},
	{"ceil", "xs:double", []argument{{"value", "xs:double"}}},
	{"floor", "xs:double", []argument{{"value", "xs:double"}}},
	{"max", "xs:double", []argument{{"a", "xs:double"}, {"b", "xs:double"}}},
	{"min", "xs:double", []argument{{"a", "xs:double"}, {"b", "xs:double"}}},
	{"strToLowerCase", "xs:string", []argument{{"value", "xs:string"}}},
	{"strToUpperCase", "xs:string", []argument{{"value", "xs:string"}}},
	{"strLength", "xs:int", []argument{{"value", "xs:string"}}},
	{"area", "xs:double", []argument{{"geometry", "gml:AbstractGeometryType"}}},
}

// Build returns a fresh Filter_Capabilities tree for version. Elements use
// the "fes" prefix for 2.0 documents and "ogc" otherwise.
func Build(version string) *ogc.Node {
	p := ogc.FilterPrefix(version) + ":"

	root := ogc.Element(p + "Filter_Capabilities")
	root.Add(
		conformanceNode(p),
		ogc.Element(p+"Id_Capabilities").Add(
			ogc.Element(p+"ResourceIdentifier").Attr("name", p+"ResourceId"),
		),
		scalarNode(p),
		spatialNode(p),
		temporalNode(p),
		functionsNode(p),
	)
	return root
}

func conformanceNode(p string) *ogc.Node {
	n := ogc.Element(p + "Conformance")
	for _, c := range conformance {
		v := "FALSE"
		if c.supported {
			v = "TRUE"
		}
		n.Add(ogc.Element(p+"Constraint").Attr("name", c.name).Add(
			ogc.Element("ows:NoValues"),
			ogc.TextElement("ows:DefaultValue", v),
		))
	}
	return n
}

func scalarNode(p string) *ogc.Node {
	logical := ogc.Element(p + "LogicalOperators")
	for _, op := range logicalOperators {
		logical.Add(ogc.Element(p+"LogicalOperator").Attr("name", op))
	}
	cmp := ogc.Element(p + "ComparisonOperators")
	for _, op := range comparisonOperators {
		cmp.Add(ogc.Element(p+"ComparisonOperator").Attr("name", "PropertyIs"+op))
	}
	return ogc.Element(p+"Scalar_Capabilities").Add(logical, cmp)
}

func spatialNode(p string) *ogc.Node {
	return ogc.Element(p+"Spatial_Capabilities").Add(
		named(p+"GeometryOperands", p+"GeometryOperand", geometryOperands),
		named(p+"SpatialOperators", p+"SpatialOperator", spatialOperators),
	)
}

func temporalNode(p string) *ogc.Node {
	return ogc.Element(p+"Temporal_Capabilities").Add(
		named(p+"TemporalOperands", p+"TemporalOperand", temporalOperands),
		named(p+"TemporalOperators", p+"TemporalOperator", temporalOperators),
	)
}

func functionsNode(p string) *ogc.Node {
	n := ogc.Element(p + "Functions")
	for _, f := range functions {
		args := ogc.Element(p + "Arguments")
		for _, a := range f.args {
			args.Add(ogc.Element(p+"Argument").Attr("name", a.name).Add(
				ogc.TextElement(p+"Type", a.typ),
			))
		}
		n.Add(ogc.Element(p+"Function").Attr("name", f.name).Add(
			ogc.TextElement(p+"Returns", f.returns),
			args,
		))
	}
	return n
}

func named(list, item string, names []string) *ogc.Node {
	n := ogc.Element(list)
	for _, name := range names {
		n.Add(ogc.Element(item).Attr("name", name))
	}
	return n
}
