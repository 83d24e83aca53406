package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

func bomOf(id string, product entities.ProductID, components ...entities.ProductID) *entities.BillOfMaterials {
	b := &entities.BillOfMaterials{ID: id, ProductID: product, Version: 1}
	for i, c := range components {
		b.Lines = append(b.Lines, entities.BOMLine{
			LineNumber:  (i + 1) * 10,
			ComponentID: c,
			QtyPer:      decimal.NewFromInt(1),
		})
	}
	return b
}

func TestBOMValidator_DetectSimpleCycle(t *testing.T) {
	v := NewBOMValidator()

	result := v.ValidateStructure([]*entities.BillOfMaterials{
		bomOf("1", "A", "B"),
		bomOf("2", "B", "A"),
	})

	assert.True(t, result.HasCycles)
	assert.Equal(t, [][]entities.ProductID{{"A", "B", "A"}}, result.CyclePaths)
	assert.False(t, result.Valid())
}

func TestBOMValidator_DetectLongerCycle(t *testing.T) {
	v := NewBOMValidator()

	result := v.ValidateStructure([]*entities.BillOfMaterials{
		bomOf("1", "A", "B"),
		bomOf("2", "B", "C"),
		bomOf("3", "C", "A"),
	})

	assert.True(t, result.HasCycles)
	assert.Equal(t, [][]entities.ProductID{{"A", "B", "C", "A"}}, result.CyclePaths)
}

func TestBOMValidator_SharedComponentIsNotACycle(t *testing.T) {
	v := NewBOMValidator()

	result := v.ValidateStructure([]*entities.BillOfMaterials{
		bomOf("1", "A", "B", "C"),
		bomOf("2", "B", "D"),
		bomOf("3", "C", "D"),
	})

	assert.False(t, result.HasCycles)
	assert.True(t, result.Valid())
}

func TestBOMValidator_ObsoleteVersionsIgnored(t *testing.T) {
	v := NewBOMValidator()
	old := bomOf("2", "B", "A")
	old.Status = entities.StatusObsolete

	result := v.ValidateStructure([]*entities.BillOfMaterials{bomOf("1", "A", "B"), old})

	assert.False(t, result.HasCycles)
}

func TestBOMValidator_Duplicates(t *testing.T) {
	v := NewBOMValidator()
	dup := bomOf("1", "A", "B", "C")
	dup.Lines[1].LineNumber = dup.Lines[0].LineNumber

	result := v.ValidateStructure([]*entities.BillOfMaterials{dup, bomOf("2", "A")})

	assert.Equal(t, []DuplicateLine{{BOMID: "1", ProductID: "A", LineNumber: 10}}, result.DuplicateLines)
	assert.Equal(t, []string{"A/v1"}, result.DuplicateVersions)
	assert.Len(t, result.Errors, 2)
}

func TestBOMValidator_ValidateItemUniqueness(t *testing.T) {
	v := NewBOMValidator()
	a, _ := entities.NewItem("A", 1, decimal.Zero, decimal.Zero, entities.Purchase)
	b, _ := entities.NewItem("B", 1, decimal.Zero, decimal.Zero, entities.Purchase)

	assert.Empty(t, v.ValidateItemUniqueness([]*entities.Item{a, b}).Errors)
	assert.Len(t, v.ValidateItemUniqueness([]*entities.Item{a, b, a}).Errors, 1)
}
