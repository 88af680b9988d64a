package compare

import (
	"fmt"
	"strings"
)

// Format selects how an expected/actual pair is compared.
type Format string

// Supported format tags.
const (
	FormatPlain           Format = "plain"
	FormatXML             Format = "xml"
	FormatUsrXMLDataXML   Format = "usrxml-dataxml"
	FormatUsrXMLDataPlain Format = "usrxml-dataplain"
	FormatUsrPlainDataXML Format = "usrplain-dataxml"
)

// Formats lists every supported tag in declaration order.
var Formats = []Format{
	FormatPlain,
	FormatXML,
	FormatUsrXMLDataXML,
	FormatUsrXMLDataPlain,
	FormatUsrPlainDataXML,
}

// ParseFormat resolves a tag from configuration. The empty string means plain.
func ParseFormat(s string) (Format, error) {
	tag := Format(strings.ToLower(strings.TrimSpace(s)))
	if tag == "" {
		return FormatPlain, nil
	}
	for _, f := range Formats {
		if f == tag {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (valid: %s)", s, formatList())
}

// HeaderAware reports whether the format splits the message into usr and data parts.
func (f Format) HeaderAware() bool {
	switch f {
	case FormatUsrXMLDataXML, FormatUsrXMLDataPlain, FormatUsrPlainDataXML:
		return true
	}
	return false
}

// parts returns the sub-formats applied to the usr block and the data remainder.
func (f Format) parts() (usr, data Format) {
	switch f {
	case FormatUsrXMLDataXML:
		return FormatXML, FormatXML
	case FormatUsrXMLDataPlain:
		return FormatXML, FormatPlain
	case FormatUsrPlainDataXML:
		return FormatPlain, FormatXML
	}
	return f, f
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
