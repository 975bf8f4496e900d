package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDoc() *Document {
	return &Document{
		Runtime: 1000,
		Symbols: map[string]float64{"ABC": 100},
		Agents: []AgentSpec{
			{Name: "a", Symbol: "ABC", Type: "basic", Algorithm: "fixedprice", Latency: "linear"},
		},
	}
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	assert.NoError(t, validDoc().Validate())
}

func TestValidateRejectsNonPositiveRuntime(t *testing.T) {
	d := validDoc()
	d.Runtime = 0
	assert.Error(t, d.Validate())
}

func TestValidateRejectsUnknownType(t *testing.T) {
	d := validDoc()
	d.Agents[0].Type = "nonsense"
	assert.Error(t, d.Validate())
}

func TestValidateRejectsUndeclaredSymbol(t *testing.T) {
	d := validDoc()
	d.Agents[0].Symbol = "XYZ"
	assert.Error(t, d.Validate())
}

func TestValidateRejectsMissingName(t *testing.T) {
	d := validDoc()
	d.Agents[0].Name = ""
	assert.Error(t, d.Validate())
}
