// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"go/types"
	"net/http"
)

// FloatT is a struct with a single f64 field, used for JSON responses
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, used for JSON responses
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single str field, used for JSON responses
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field, used for JSON responses
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct containing the basic types Golang knows
type HumanPayload struct {
	// Bool holds a boolean
	Bool bool

	// Int holds an int
	Int int

	// Float holds a float
	Float float64

	// String holds a string
	String string

	// T holds the type of data actually contained in the payload
	T types.BasicKind
}

// EncodeAndRespond converts the humanpayload to a json {'key': value}
// where key is one of bool, int, f64, or str
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Bool:
		obj := BoolT{Bool: hp.Bool}
		err = json.NewEncoder(w).Encode(obj)
	case types.Int:
		obj := IntT{Int: hp.Int}
		err = json.NewEncoder(w).Encode(obj)
	case types.Float64:
		obj := FloatT{F64: hp.Float}
		err = json.NewEncoder(w).Encode(obj)
	case types.String:
		obj := StrT{Str: hp.String}
		err = json.NewEncoder(w).Encode(obj)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
