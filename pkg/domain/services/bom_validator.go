package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// BOMValidator checks the integrity of a whole set of BOM versions
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles         bool
	CyclePaths        [][]entities.ProductID
	DuplicateLines    []DuplicateLine
	DuplicateVersions []string
	Errors            []string
}

// DuplicateLine identifies a line number used twice within one BOM
type DuplicateLine struct {
	BOMID      string
	ProductID  entities.ProductID
	LineNumber int
}

// Valid reports whether no problem was found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateStructure validates the product graph formed by the non-obsolete BOMs
func (v *BOMValidator) ValidateStructure(boms []*entities.BillOfMaterials) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:        make([][]entities.ProductID, 0),
		DuplicateLines:    make([]DuplicateLine, 0),
		DuplicateVersions: make([]string, 0),
		Errors:            make([]string, 0),
	}

	adjacencyMap := v.buildAdjacencyMap(boms)

	cycles := v.detectCycles(adjacencyMap)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles

	result.DuplicateLines = v.detectDuplicateLines(boms)
	result.DuplicateVersions = v.detectDuplicateVersions(boms)

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate BOM line numbers", len(result.DuplicateLines)))
	}
	for _, key := range result.DuplicateVersions {
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate BOM version %s", key))
	}

	return result
}

// buildAdjacencyMap creates a map of parent -> children relationships.
// Every version contributes edges: a cycle through any dated version is a defect.
func (v *BOMValidator) buildAdjacencyMap(boms []*entities.BillOfMaterials) map[entities.ProductID][]entities.ProductID {
	adjacencyMap := make(map[entities.ProductID][]entities.ProductID)
	seen := make(map[[2]entities.ProductID]bool)

	for _, bom := range boms {
		if bom.IsObsolete() {
			continue
		}
		for _, line := range bom.SortedLines() {
			edge := [2]entities.ProductID{bom.ProductID, line.ComponentID}
			if seen[edge] {
				continue
			}
			seen[edge] = true
			adjacencyMap[bom.ProductID] = append(adjacencyMap[bom.ProductID], line.ComponentID)
		}
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the BOM structure
func (v *BOMValidator) detectCycles(adjacencyMap map[entities.ProductID][]entities.ProductID) [][]entities.ProductID {
	visited := make(map[entities.ProductID]bool)
	recursionStack := make(map[entities.ProductID]bool)
	cycles := make([][]entities.ProductID, 0)

	// Deterministic start order keeps reported paths stable
	parents := make([]entities.ProductID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *BOMValidator) dfsDetectCycle(
	current entities.ProductID,
	adjacencyMap map[entities.ProductID][]entities.ProductID,
	visited map[entities.ProductID]bool,
	recursionStack map[entities.ProductID]bool,
	path []entities.ProductID,
	cycles *[][]entities.ProductID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}
		for i, part := range path {
			if part == child {
				cycle := make([]entities.ProductID, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateLines finds line numbers used more than once in the same BOM
func (v *BOMValidator) detectDuplicateLines(boms []*entities.BillOfMaterials) []DuplicateLine {
	duplicates := make([]DuplicateLine, 0)

	for _, bom := range boms {
		seen := make(map[int]bool)
		for _, line := range bom.Lines {
			if seen[line.LineNumber] {
				duplicates = append(duplicates, DuplicateLine{
					BOMID:      bom.ID,
					ProductID:  bom.ProductID,
					LineNumber: line.LineNumber,
				})
				continue
			}
			seen[line.LineNumber] = true
		}
	}

	return duplicates
}

// detectDuplicateVersions finds product/version pairs present more than once
func (v *BOMValidator) detectDuplicateVersions(boms []*entities.BillOfMaterials) []string {
	seen := make(map[string]bool)
	duplicates := make([]string, 0)

	for _, bom := range boms {
		key := fmt.Sprintf("%s/v%d", bom.ProductID, bom.Version)
		if seen[key] {
			duplicates = append(duplicates, key)
			continue
		}
		seen[key] = true
	}

	return duplicates
}

// ValidateItemUniqueness validates that product ids are unique across items
func (v *BOMValidator) ValidateItemUniqueness(items []*entities.Item) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]string, 0),
	}

	seen := make(map[entities.ProductID]bool)
	duplicates := make([]entities.ProductID, 0)

	for _, item := range items {
		if seen[item.ProductID] {
			duplicates = append(duplicates, item.ProductID)
		} else {
			seen[item.ProductID] = true
		}
	}

	if len(duplicates) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate product ids found: %v", duplicates))
	}

	return result
}
