//go:build ignore

// gen_linear7 writes linear7.onnx, a tiny network with the emotion model's
// input and output contract:
//
//	input [N,3,64,64] -> GlobalAveragePool -> Flatten -> Gemm(W[7,3], b[7]) -> scores [N,7]
//
// so scores[n][j] = sum_c W[j][c]*mean(input[n][c]) + b[j]. Run with
//
//	go run gen_linear7.go
package main

import (
	"encoding/binary"
	"log"
	"math"
	"os"
)

// Weight and Bias match the values the classifier tests expect.
func Weight(j, c int) float32 { return float32(j-3)*0.5 + float32(c)*0.25 }
func Bias(j int) float32      { return float32(0.1 * float64(j)) }

func key(field, wire int) []byte { return binary.AppendUvarint(nil, uint64(field<<3|wire)) }

func varintField(field int, v uint64) []byte {
	return binary.AppendUvarint(key(field, 0), v)
}

func bytesField(field int, b []byte) []byte {
	out := binary.AppendUvarint(key(field, 2), uint64(len(b)))
	return append(out, b...)
}

func stringField(field int, s string) []byte { return bytesField(field, []byte(s)) }

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func dimValue(v uint64) []byte  { return bytesField(1, varintField(1, v)) }
func dimParam(p string) []byte { return bytesField(1, stringField(2, p)) }

func valueInfo(name string, dims ...[]byte) []byte {
	tensorType := concat(varintField(1, 1), bytesField(2, concat(dims...)))
	return concat(stringField(1, name), bytesField(2, bytesField(1, tensorType)))
}

func tensor(name string, dims []uint64, vals []float32) []byte {
	var out []byte
	for _, d := range dims {
		out = append(out, varintField(1, d)...)
	}
	raw := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return concat(out, varintField(2, 1), stringField(8, name), bytesField(9, raw))
}

func intAttr(name string, v uint64) []byte {
	return concat(stringField(1, name), varintField(3, v), varintField(20, 2))
}

func node(in, out []string, name, op string, attrs ...[]byte) []byte {
	var b []byte
	for _, s := range in {
		b = append(b, stringField(1, s)...)
	}
	for _, s := range out {
		b = append(b, stringField(2, s)...)
	}
	b = concat(b, stringField(3, name), stringField(4, op))
	for _, a := range attrs {
		b = append(b, bytesField(5, a)...)
	}
	return b
}

func main() {
	var w, b []float32
	for j := 0; j < 7; j++ {
		for c := 0; c < 3; c++ {
			w = append(w, Weight(j, c))
		}
		b = append(b, Bias(j))
	}

	graph := concat(
		bytesField(1, node([]string{"input"}, []string{"pooled"}, "pool", "GlobalAveragePool")),
		bytesField(1, node([]string{"pooled"}, []string{"flat"}, "flatten", "Flatten", intAttr("axis", 1))),
		bytesField(1, node([]string{"flat", "weight", "bias"}, []string{"scores"}, "gemm", "Gemm", intAttr("transB", 1))),
		stringField(2, "linear7"),
		bytesField(5, tensor("weight", []uint64{7, 3}, w)),
		bytesField(5, tensor("bias", []uint64{7}, b)),
		bytesField(11, valueInfo("input", dimParam("N"), dimValue(3), dimValue(64), dimValue(64))),
		bytesField(12, valueInfo("scores", dimParam("N"), dimValue(7))),
	)
	model := concat(
		varintField(1, 6), // ir_version
		stringField(2, "bhava-testdata"),
		bytesField(7, graph),
		bytesField(8, concat(stringField(1, ""), varintField(2, 11))), // opset 11
	)

	if err := os.WriteFile("linear7.onnx", model, 0o644); err != nil {
		log.Fatal(err)
	}
}
