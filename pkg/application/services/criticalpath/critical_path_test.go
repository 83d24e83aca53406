package criticalpath_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vsinha/mfgplan/pkg/application/services/bom"
	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	fixtures "github.com/vsinha/mfgplan/pkg/infrastructure/testing"
)

func newService(f *fixtures.Fixture, maxDepth int) *criticalpath.Service {
	return criticalpath.NewService(bom.NewManager(f.BOMs, bom.Config{}), f.Items, maxDepth)
}

func TestService_AnalyzeBicycle(t *testing.T) {
	f := fixtures.BuildBicycleFixture()

	analysis, err := newService(f, 0).Analyze(context.Background(), "BIKE", fixtures.Qty(20), entities.MustDate("2024-02-01"), 5)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.TotalPaths != 2 {
		t.Fatalf("expected 2 paths, got %d", analysis.TotalPaths)
	}
	if len(analysis.TopPaths) != 2 {
		t.Fatalf("expected 2 top paths, got %d", len(analysis.TopPaths))
	}

	critical := analysis.CriticalPath
	want := []entities.ProductID{"BIKE", "FRAME", "TUBE"}
	got := critical.Products()
	if len(got) != len(want) {
		t.Fatalf("critical path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("critical path = %v, want %v", got, want)
		}
	}
	if critical.TotalLeadTime != 18 || critical.EffectiveLeadTime != 18 {
		t.Errorf("critical lead time = %d/%d, want 18/18", critical.TotalLeadTime, critical.EffectiveLeadTime)
	}
	if critical.BottleneckProduct != "TUBE" {
		t.Errorf("bottleneck = %s, want TUBE", critical.BottleneckProduct)
	}
	if !critical.Nodes[2].RequiredQty.Equal(fixtures.Qty(60)) {
		t.Errorf("TUBE required = %s, want 60", critical.Nodes[2].RequiredQty)
	}
	if critical.Nodes[0].CumulativeTime != 18 {
		t.Errorf("BIKE cumulative time = %d, want 18", critical.Nodes[0].CumulativeTime)
	}

	// 10 of 40 wheels on hand trims a quarter of the 7 day lead time
	wheels := analysis.TopPaths[1]
	if wheels.BottleneckProduct != "WHEEL" {
		t.Errorf("second path bottleneck = %s, want WHEEL", wheels.BottleneckProduct)
	}
	if wheels.TotalLeadTime != 12 || wheels.EffectiveLeadTime != 10 {
		t.Errorf("wheel path lead time = %d/%d, want 12/10", wheels.TotalLeadTime, wheels.EffectiveLeadTime)
	}
}

func TestService_StockCoversComponent(t *testing.T) {
	f := fixtures.NewFixture().
		Item("P", 2, 0, 0, entities.Manufacture).
		Item("C", 9, 0, 100, entities.Purchase).
		BOM("P", fixtures.Line(10, "C", 2))

	analysis, err := newService(f, 0).Analyze(context.Background(), "P", fixtures.Qty(10), entities.MustDate("2024-01-01"), 1)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.CriticalPath.TotalLeadTime != 11 {
		t.Errorf("total lead time = %d, want 11", analysis.CriticalPath.TotalLeadTime)
	}
	if analysis.CriticalPath.EffectiveLeadTime != 2 {
		t.Errorf("effective lead time = %d, want 2", analysis.CriticalPath.EffectiveLeadTime)
	}
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()
	date := entities.MustDate("2024-01-01")

	t.Run("unknown product", func(t *testing.T) {
		_, err := newService(fixtures.NewFixture(), 0).Analyze(ctx, "NOPE", fixtures.Qty(1), date, 1)
		if !errors.Is(err, entities.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("depth limit", func(t *testing.T) {
		f := fixtures.BuildBicycleFixture()
		_, err := newService(f, 1).Analyze(ctx, "BIKE", fixtures.Qty(1), entities.MustDate("2024-02-01"), 1)
		if !errors.Is(err, entities.ErrMaxDepthExceeded) {
			t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		svc := newService(fixtures.BuildBicycleFixture(), 0)
		if _, err := svc.Analyze(ctx, "BIKE", fixtures.Qty(0), date, 1); !errors.Is(err, entities.ErrInvalidArgument) {
			t.Errorf("zero quantity: expected ErrInvalidArgument, got %v", err)
		}
		if _, err := svc.Analyze(ctx, "BIKE", fixtures.Qty(1), date, 0); !errors.Is(err, entities.ErrInvalidArgument) {
			t.Errorf("zero topN: expected ErrInvalidArgument, got %v", err)
		}
	})
}
