package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHDITable_Lookup(t *testing.T) {
	table := DefaultHDITable()
	assert.Equal(t, 0.821, table.Lookup("Российская Федерация"))
	assert.Equal(t, 0.801, table.Lookup(" республика беларусь"))
	assert.Equal(t, 0.0, table.Lookup("Атлантида"))

	var nilTable *HDITable
	assert.Equal(t, 0.0, nilTable.Lookup("Российская Федерация"))
}

func TestNewHDITable(t *testing.T) {
	table := NewHDITable(map[string]float64{"Китай": 0.5})
	assert.Equal(t, 0.5, table.Lookup("КИТАЙ"))
	assert.Equal(t, 0.0, table.Lookup("Российская Федерация"))
}
