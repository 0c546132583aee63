package ogc

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Code is an OWS exception code.
type Code string

const (
	MissingParameterValue Code = "MissingParameterValue"
	InvalidParameterValue Code = "InvalidParameterValue"
	MissingParameter      Code = "MissingParameter"
	NotImplemented        Code = "NotImplemented"
	NoApplicableCode      Code = "NoApplicableCode"
)

// Exception is a protocol-level failure rendered as an ows:ExceptionReport.
type Exception struct {
	Code    Code   `json:"code"`
	Locator string `json:"locator,omitempty"`
	Text    string `json:"text,omitempty"`
}

func (e *Exception) Error() string {
	msg := string(e.Code)
	if e.Locator != "" {
		msg += " (" + e.Locator + ")"
	}
	if e.Text != "" {
		msg += ": " + e.Text
	}
	return msg
}

func (e *Exception) HTTPStatus() int {
	switch e.Code {
	case MissingParameterValue, InvalidParameterValue, MissingParameter:
		return http.StatusBadRequest
	case NotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func NewMissingParameterValue(locator string) *Exception {
	return &Exception{
		Code:    MissingParameterValue,
		Locator: locator,
		Text:    fmt.Sprintf("missing value for parameter %q", locator),
	}
}

func NewInvalidParameterValue(locator, value string) *Exception {
	return &Exception{
		Code:    InvalidParameterValue,
		Locator: locator,
		Text:    fmt.Sprintf("invalid value %q for parameter %q", value, locator),
	}
}

func NewMissingParameter(locator string) *Exception {
	return &Exception{
		Code:    MissingParameter,
		Locator: locator,
		Text:    fmt.Sprintf("required parameter %q is missing", locator),
	}
}

func NewNotImplemented(operation string) *Exception {
	return &Exception{
		Code:    NotImplemented,
		Locator: operation,
		Text:    fmt.Sprintf("operation %q is not implemented", operation),
	}
}

func NewNoApplicableCode(text string) *Exception {
	return &Exception{Code: NoApplicableCode, Text: text}
}

// AsException returns the *Exception in err's chain, or wraps any other
// error as NoApplicableCode.
func AsException(err error) *Exception {
	if err == nil {
		return nil
	}
	var ex *Exception
	if errors.As(err, &ex) {
		return ex
	}
	return NewNoApplicableCode(err.Error())
}

var exceptionReportAttrs = []Attr{
	{Name: "xmlns:ows", Value: NSOWS},
	{Name: "xmlns:xsi", Value: NSXSI},
	{Name: "xsi:schemaLocation", Value: NSOWS + " http://schemas.opengis.net/ows/1.1.0/owsExceptionReport.xsd"},
	{Name: "version", Value: "1.0.0"},
	{Name: "xml:lang", Value: "en"},
}

// ExceptionReport builds the ows:ExceptionReport tree for one or more exceptions.
func ExceptionReport(excs ...*Exception) *Node {
	root := Element("ows:ExceptionReport").AttrsFrom(exceptionReportAttrs)
	for _, e := range excs {
		if e == nil {
			continue
		}
		ex := Element("ows:Exception").Attr("exceptionCode", string(e.Code))
		if e.Locator != "" {
			ex.Attr("locator", e.Locator)
		}
		if e.Text != "" {
			ex.Add(TextElement("ows:ExceptionText", e.Text))
		}
		root.Add(ex)
	}
	return root
}

func WriteExceptionReport(w io.Writer, excs ...*Exception) error {
	return Write(w, ExceptionReport(excs...))
}
