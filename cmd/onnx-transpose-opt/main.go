// Package main provides the onnx-transpose-opt CLI.
package main

import (
	"fmt"
	"os"

	"github.com/born-ml/onnxtranspose/onnx"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("onnx-transpose-opt %s\n", version)
	case "optimize":
		if err := runOptimize(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "onnx-transpose-opt:", err)
			os.Exit(1)
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Println("onnx-transpose-opt - push Transpose nodes toward the edges of an ONNX graph")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version                 Show version")
	fmt.Println("  optimize [flags] <path> Run the transpose-pushing optimizer on an ONNX model")
	fmt.Println()
	fmt.Println("optimize flags:")
	fmt.Println("  -allow-extended-ops  permit rewrites into the com.microsoft domain")
}

func runOptimize(args []string) error {
	var allowExtendedOps bool
	var path string
	for _, a := range args {
		switch a {
		case "-allow-extended-ops":
			allowExtendedOps = true
		default:
			if path != "" {
				return fmt.Errorf("unexpected argument %q", a)
			}
			path = a
		}
	}
	if path == "" {
		return fmt.Errorf("optimize requires a path to an .onnx file")
	}

	h, err := onnx.Load(path)
	if err != nil {
		return err
	}

	nodesBefore := h.NodeCount()
	transposesBefore := h.TransposeCount()

	changed := onnx.Optimize(h, onnx.Options{AllowExtendedOps: allowExtendedOps})

	fmt.Printf("%s: %d -> %d nodes, %d -> %d Transpose nodes (changed=%t)\n",
		path, nodesBefore, h.NodeCount(), transposesBefore, h.TransposeCount(), changed)
	return nil
}
