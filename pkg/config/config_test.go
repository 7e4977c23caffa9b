package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmlwire/soapmsg/pkg/soap"
	"github.com/xmlwire/soapmsg/pkg/xmlns"
)

const quoteService = `
name: quotes
namespaces:
  q: urn:quotes
operations:
  getPrice:
    style: rpc
    operation: q:getPrice
    header:
      - label: token
        type: xsd:string
    body:
      - label: symbol
        type: xsd:string
      - label: count
        type: xsd:int
    mustUnderstand: [token]
    destination:
      token: urn:gateway
  lastTrade:
    body:
      - label: Price
        type: xsd:double
        element: q:LastTradePrice
`

func TestLoadAndBuild(t *testing.T) {
	cfg, err := Load([]byte(quoteService))
	require.NoError(t, err)
	assert.Equal(t, "quotes", cfg.Name)

	msgs, err := cfg.Build()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	get := msgs["getPrice"]
	require.NotNil(t, get)
	assert.Equal(t, soap.StyleRPCLiteral, get.Style)
	assert.Equal(t, xmlns.Name("urn:quotes", "getPrice"), get.Operation)
	require.Len(t, get.Header, 1)
	require.Len(t, get.Body, 2)
	assert.Equal(t, xmlns.Name(xmlns.Schema2001, "string"), get.Body[0].Type)
	assert.True(t, get.MustUnderstand["token"])
	assert.Equal(t, "urn:gateway", get.Destination["token"])

	last := msgs["lastTrade"]
	require.NotNil(t, last)
	assert.Equal(t, soap.StyleDocument, last.Style)
	require.Len(t, last.Body, 1)
	assert.Equal(t, xmlns.Name("urn:quotes", "LastTradePrice"), last.Body[0].Element)
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load([]byte(`{
		"operations": {
			"ping": {"body": [{"label": "msg", "type": "xsd:string"}]}
		}
	}`))
	require.NoError(t, err)
	msgs, err := cfg.Build()
	require.NoError(t, err)
	assert.Contains(t, msgs, "ping")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.yaml")
	require.NoError(t, os.WriteFile(path, []byte(quoteService), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "quotes", cfg.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]byte("operations: {}"))
	assert.ErrorContains(t, err, "no operations")

	_, err = Load([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]string{
		"undeclared prefix": `
operations:
  op:
    body:
      - label: x
        type: nope:thing
`,
		"missing label": `
operations:
  op:
    body:
      - type: xsd:string
`,
		"missing type": `
operations:
  op:
    body:
      - label: x
`,
		"bad style": `
operations:
  op:
    style: solicit
    body:
      - label: x
        type: xsd:string
`,
		"mustUnderstand without header part": `
operations:
  op:
    body:
      - label: x
        type: xsd:string
    mustUnderstand: [x]
`,
	}
	for name, doc := range cases {
		cfg, err := Load([]byte(doc))
		require.NoError(t, err, name)
		_, err = cfg.Build()
		assert.Error(t, err, name)
	}
}

func TestResolveBareName(t *testing.T) {
	cfg := &ServiceConfig{}
	q, err := cfg.resolve("Price")
	require.NoError(t, err)
	assert.Equal(t, xmlns.Name("", "Price"), q)

	q, err = cfg.resolve("xsd:int")
	require.NoError(t, err)
	assert.Equal(t, xmlns.Name(xmlns.Schema2001, "int"), q)
}
