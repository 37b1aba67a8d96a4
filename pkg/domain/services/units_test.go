package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func TestUnitConverter_Convert(t *testing.T) {
	conv := NewUnitConverter()

	testCases := []struct {
		name     string
		quantity string
		from     entities.Unit
		to       entities.Unit
		expected string
	}{
		{"identity", "2.5", "cup", "cup", "2.5"},
		{"identity unknown unit", "3", "pinch", "pinch", "3"},
		{"case insensitive", "1", "Cup", "cup", "1"},
		{"cup to tbsp", "1", "cup", "tbsp", "16"},
		{"tbsp to tsp", "2", "tbsp", "tsp", "6"},
		{"kg to g", "1.5", "kg", "g", "1500"},
		{"lb to oz", "1", "lb", "oz", "16"},
		{"dozen to each", "2", "dozen", "each", "24"},
		{"gal to qt", "1", "gal", "qt", "4"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := conv.Convert(decimal.RequireFromString(tc.quantity), tc.from, tc.to)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			want := decimal.RequireFromString(tc.expected)
			if !got.Round(6).Equal(want) {
				t.Errorf("Expected %s %s, got %s", want, tc.to, got)
			}
		})
	}
}

func TestUnitConverter_Incompatible(t *testing.T) {
	conv := NewUnitConverter()

	testCases := []struct {
		from entities.Unit
		to   entities.Unit
	}{
		{"cup", "g"},
		{"each", "ml"},
		{"pinch", "tsp"},
	}

	for _, tc := range testCases {
		if conv.Convertible(tc.from, tc.to) {
			t.Errorf("Expected %s -> %s to be inconvertible", tc.from, tc.to)
		}
		_, err := conv.Convert(decimal.NewFromInt(1), tc.from, tc.to)
		if !errors.Is(err, entities.ErrUnitIncompatible) {
			t.Errorf("Expected ErrUnitIncompatible for %s -> %s, got %v", tc.from, tc.to, err)
		}
	}
}

func TestUnitConverter_Register(t *testing.T) {
	conv := NewUnitConverter()
	conv.Register("stick", entities.Mass, decimal.NewFromInt(113))

	if conv.Dimension("stick") != entities.Mass {
		t.Fatalf("Expected stick to be a mass unit, got %s", conv.Dimension("stick"))
	}
	factor, err := conv.Factor("stick", "g")
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if !factor.Equal(decimal.NewFromInt(113)) {
		t.Errorf("Expected 113, got %s", factor)
	}
}
