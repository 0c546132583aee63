package router

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
)

// ParseXML normalizes a posted request document. The root element's local
// name selects the operation; namespace prefixes are ignored throughout.
func ParseXML(r io.Reader) (model.Request, error) {
	dec := xml.NewDecoder(r)

	root, err := firstElement(dec)
	if err != nil {
		return model.Request{}, malformed()
	}

	req := model.Request{
		Operation: root.Name.Local,
		Service:   attr(root, "service"),
		Version:   attr(root, "version"),
	}

	switch {
	case strings.EqualFold(root.Name.Local, "GetCapabilities"):
		err = readCapabilitiesChildren(dec, &req)
	case strings.EqualFold(root.Name.Local, "GetObservation"):
		err = readObservationChildren(dec, &req)
	default:
		err = dec.Skip()
	}
	if err != nil {
		var ex *ogc.Exception
		if errors.As(err, &ex) {
			return model.Request{}, ex
		}
		return model.Request{}, malformed()
	}
	return req, nil
}

func malformed() error {
	return ogc.NewInvalidParameterValue("request", "malformed XML request document")
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// eachChild calls fn for every direct child element of the element whose
// start tag was just consumed. fn must consume the child completely.
func eachChild(dec *xml.Decoder, fn func(xml.StartElement) error) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// text collects the character data of the current element and its
// descendants, trimmed.
func text(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func readCapabilitiesChildren(dec *xml.Decoder, req *model.Request) error {
	var accept []string
	err := eachChild(dec, func(se xml.StartElement) error {
		if se.Name.Local != "AcceptVersions" {
			return dec.Skip()
		}
		return eachChild(dec, func(v xml.StartElement) error {
			if v.Name.Local != "Version" {
				return dec.Skip()
			}
			s, err := text(dec)
			if err != nil {
				return err
			}
			if s != "" {
				accept = append(accept, s)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	if len(accept) > 0 {
		req.AcceptVersions = strings.Join(accept, ",")
	}
	return nil
}

func readObservationChildren(dec *xml.Decoder, req *model.Request) error {
	return eachChild(dec, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "eventTime", "temporalFilter":
			te, err := readEventTime(dec)
			if err != nil {
				return err
			}
			req.EventTime = append(req.EventTime, te)
			return nil
		case "observedProperty":
			return appendText(dec, se, &req.ObservedProperties)
		case "procedure":
			return appendText(dec, se, &req.Procedure)
		case "offering":
			return setText(dec, se, &req.Offering)
		case "featureOfInterest":
			return setText(dec, se, &req.FeatureOfInterest)
		case "result":
			return setText(dec, se, &req.Result)
		case "responseFormat":
			return setText(dec, se, &req.ResponseFormat)
		case "resultModel":
			return setText(dec, se, &req.ResultModel)
		case "responseMode":
			return setText(dec, se, &req.ResponseMode)
		default:
			return dec.Skip()
		}
	})
}

// valueOf reads element text, falling back to an xlink:href reference.
func valueOf(dec *xml.Decoder, se xml.StartElement) (string, error) {
	s, err := text(dec)
	if err != nil {
		return "", err
	}
	if s == "" {
		s = attr(se, "href")
	}
	return s, nil
}

func setText(dec *xml.Decoder, se xml.StartElement, dst *string) error {
	s, err := valueOf(dec, se)
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

func appendText(dec *xml.Decoder, se xml.StartElement, dst *[]string) error {
	s, err := valueOf(dec, se)
	if err != nil {
		return err
	}
	if s != "" {
		*dst = append(*dst, s)
	}
	return nil
}

// readEventTime finds timePosition or beginPosition/endPosition anywhere
// below an eventTime element, whatever temporal operator wraps them.
func readEventTime(dec *xml.Decoder) (model.TimeExpr, error) {
	var instant, begin, end string
	var sawInstant bool
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return model.TimeExpr{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var dst *string
			switch t.Name.Local {
			case "timePosition":
				dst, sawInstant = &instant, true
			case "beginPosition":
				dst = &begin
			case "endPosition":
				dst = &end
			}
			if dst == nil {
				depth++
				continue
			}
			s, err := text(dec)
			if err != nil {
				return model.TimeExpr{}, err
			}
			*dst = s
		case xml.EndElement:
			depth--
		}
	}

	switch {
	case begin != "" && end != "":
		return model.Period(begin, end), nil
	case sawInstant && strings.EqualFold(instant, "latest"):
		return model.Latest(), nil
	case instant != "":
		return model.Instant(instant), nil
	default:
		return model.TimeExpr{}, ogc.NewInvalidParameterValue("eventTime", "")
	}
}
