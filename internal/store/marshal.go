package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/rxnenum/internal/ir"
)

// marshalInts converts a position or size vector to canonical JSON TEXT.
func marshalInts(v []int) (string, error) {
	data, err := ir.MarshalCanonical(ir.IntArray(v))
	if err != nil {
		return "", fmt.Errorf("marshal ints: %w", err)
	}
	return string(data), nil
}

// unmarshalInts parses canonical JSON TEXT written by marshalInts.
func unmarshalInts(data string) ([]int, error) {
	if data == "" || data == "[]" {
		return []int{}, nil
	}
	var arr ir.IRArray
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		return nil, fmt.Errorf("unmarshal ints: %w", err)
	}
	out, err := ir.Ints(arr)
	if err != nil {
		return nil, fmt.Errorf("unmarshal ints: %w", err)
	}
	return out, nil
}

// marshalGroups converts product groups to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalGroups(groups [][]ir.Product) (string, error) {
	arr := make(ir.IRArray, len(groups))
	for i, g := range groups {
		set := make(ir.IRArray, len(g))
		for j, p := range g {
			set[j] = p.ToIR()
		}
		arr[i] = set
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal products: %w", err)
	}
	return string(data), nil
}

// unmarshalGroups parses canonical JSON TEXT to product groups.
// Uses ir.IRArray.UnmarshalJSON which keeps integers exact.
func unmarshalGroups(data string) ([][]ir.Product, error) {
	if data == "" || data == "[]" {
		return [][]ir.Product{}, nil
	}
	var arr ir.IRArray
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	groups := make([][]ir.Product, len(arr))
	for i, v := range arr {
		set, ok := v.(ir.IRArray)
		if !ok {
			return nil, fmt.Errorf("unmarshal products: group %d is %T, want array", i, v)
		}
		groups[i] = make([]ir.Product, len(set))
		for j, pv := range set {
			p, err := productFromIR(pv)
			if err != nil {
				return nil, fmt.Errorf("unmarshal products: group %d product %d: %w", i, j, err)
			}
			groups[i][j] = p
		}
	}
	return groups, nil
}

func productFromIR(v ir.IRValue) (ir.Product, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return ir.Product{}, fmt.Errorf("expected object, got %T", v)
	}
	var p ir.Product
	var err error
	if p.Structure, err = obj.String("structure"); err != nil {
		return ir.Product{}, err
	}
	if _, ok := obj["sources"]; ok {
		src, err := obj.Array("sources")
		if err != nil {
			return ir.Product{}, err
		}
		for _, s := range src {
			str, ok := s.(ir.IRString)
			if !ok {
				return ir.Product{}, fmt.Errorf("source is %T, want string", s)
			}
			p.Sources = append(p.Sources, string(str))
		}
	}
	return p, nil
}
