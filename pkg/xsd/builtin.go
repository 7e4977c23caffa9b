package xsd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

// Builtin returns a resolver for the XML Schema primitive types (string,
// boolean, the integer family, float/double/decimal, date/time, binary,
// anyURI, QName). It also answers for the SOAP encoding namespace, whose
// scalar type names mirror the schema ones.
func Builtin() Resolver {
	return builtin{}
}

type builtin struct{}

func (builtin) Reader(typ xmlns.QName, opts ReaderOptions) (ReadFunc, error) {
	if !builtinNamespace(typ.Space) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	parse, ok := parsers[typ.Local]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	return func(el *etree.Element) (any, error) {
		if v, ok := xmlns.Attr(el, xmlns.XSI, "nil"); ok && (v == "true" || v == "1") {
			return nil, nil
		}
		return parse(strings.TrimSpace(el.Text()))
	}, nil
}

func (builtin) Writer(typ xmlns.QName, opts WriterOptions) (WriteFunc, error) {
	if !builtinNamespace(typ.Space) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	if _, ok := parsers[typ.Local]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	name := opts.ElementName.Local
	if name == "" {
		name = typ.Local
	}
	return func(doc *etree.Document, value any) (*etree.Element, error) {
		el := etree.NewElement(name)
		text, err := Lexical(typ.Local, value)
		if err != nil {
			return nil, err
		}
		el.SetText(text)
		return el, nil
	}, nil
}

func builtinNamespace(uri string) bool {
	return uri == "" || xmlns.IsSchemaNamespace(uri) || uri == xmlns.SOAPEncoding || uri == xmlns.NoNamespace
}

// Lexical renders a Go value in the lexical form of the named schema type.
func Lexical(local string, value any) (string, error) {
	if value == nil {
		return "", nil
	}
	switch local {
	case "base64Binary":
		if b, ok := value.([]byte); ok {
			return base64.StdEncoding.EncodeToString(b), nil
		}
	case "hexBinary":
		if b, ok := value.([]byte); ok {
			return hex.EncodeToString(b), nil
		}
	case "dateTime", "date", "time":
		if t, ok := value.(time.Time); ok {
			switch local {
			case "date":
				return t.Format("2006-01-02"), nil
			case "time":
				return t.Format("15:04:05"), nil
			default:
				return t.Format(time.RFC3339), nil
			}
		}
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("xsd: cannot render %T as %s", value, local)
}

type parseFunc func(text string) (any, error)

func parseString(text string) (any, error) { return text, nil }

func parseBool(text string) (any, error) {
	switch text {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return nil, fmt.Errorf("xsd: invalid boolean %q", text)
}

func parseInt(text string) (any, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("xsd: invalid integer %q", text)
	}
	return n, nil
}

func parseUint(text string) (any, error) {
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("xsd: invalid unsigned integer %q", text)
	}
	return n, nil
}

func parseFloat(text string) (any, error) {
	switch text {
	case "INF":
		text = "+Inf"
	case "-INF":
		text = "-Inf"
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("xsd: invalid decimal %q", text)
	}
	return f, nil
}

func parseDateTime(text string) (any, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("xsd: invalid dateTime %q", text)
}

func parseDate(text string) (any, error) {
	t, err := time.Parse("2006-01-02", text)
	if err != nil {
		return nil, fmt.Errorf("xsd: invalid date %q", text)
	}
	return t, nil
}

func parseTime(text string) (any, error) {
	for _, layout := range []string{"15:04:05Z07:00", "15:04:05"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("xsd: invalid time %q", text)
}

func parseBase64(text string) (any, error) {
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("xsd: invalid base64Binary: %v", err)
	}
	return b, nil
}

func parseHex(text string) (any, error) {
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("xsd: invalid hexBinary: %v", err)
	}
	return b, nil
}

var parsers = map[string]parseFunc{
	"string":             parseString,
	"normalizedString":   parseString,
	"token":              parseString,
	"anyURI":             parseString,
	"QName":              parseString,
	"NMTOKEN":            parseString,
	"language":           parseString,
	"boolean":            parseBool,
	"byte":               parseInt,
	"short":              parseInt,
	"int":                parseInt,
	"long":               parseInt,
	"integer":            parseInt,
	"negativeInteger":    parseInt,
	"nonPositiveInteger": parseInt,
	"unsignedByte":       parseUint,
	"unsignedShort":      parseUint,
	"unsignedInt":        parseUint,
	"unsignedLong":       parseUint,
	"positiveInteger":    parseUint,
	"nonNegativeInteger": parseUint,
	"float":              parseFloat,
	"double":             parseFloat,
	"decimal":            parseFloat,
	"dateTime":           parseDateTime,
	"date":               parseDate,
	"time":               parseTime,
	"base64Binary":       parseBase64,
	"hexBinary":          parseHex,
}
