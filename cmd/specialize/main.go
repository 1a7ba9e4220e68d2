// Command specialize builds a synthetic kernel artifact with a single
// thread_dim-tagged specialization constant, runs it through
// pkg/spirv's bytecode patcher, and prints the resulting workgroup size
// — a host-only demonstration of KernelBuilder.Specialize's contract
// that needs no physical device, unlike cmd/enumerate.
package main

import (
	"fmt"
	"log"

	"github.com/christerso/gpurt/pkg/artifact"
	"github.com/christerso/gpurt/pkg/scalar"
	"github.com/christerso/gpurt/pkg/spirv"
)

// opDecorate/opSpecConstant/decorationSpecID mirror pkg/spirv's private
// opcode table; a real artifact comes from the offline kernel compiler,
// out of scope here, so this hand-assembles just enough bytecode to
// exercise the patcher: one OpDecorate(SpecId) plus one OpSpecConstant.
const (
	opDecorate       = 71
	opSpecConstant   = 50
	decorationSpecID = 1
)

func syntheticBlob() []byte {
	bytecode := []uint32{
		0x07230203, 0x00010300, 0, 20, 0, // header
		wordHeader(opDecorate, 4), 10, decorationSpecID, 0, // Decorate %10 SpecId 0
		wordHeader(opSpecConstant, 4), 6, 10, 64, // SpecConstant %6 %10 = 64 (default BLOCK)
	}

	desc := &artifact.Desc{
		Name:     "demo.copy",
		Bytecode: bytecode,
		Threads:  [3]uint32{64, 1, 1},
		Safe:     true,
		SpecDescs: []artifact.SpecDesc{
			{Name: "BLOCK", ScalarType: scalar.U32, ThreadDim: 0},
		},
		SliceDescs: []artifact.SliceDesc{
			{Name: "y", ScalarType: scalar.F32, Mutable: true, Item: true},
			{Name: "x", ScalarType: scalar.F32, Mutable: false, Item: true},
		},
	}
	return artifact.Encode(desc)
}

func wordHeader(opcode uint16, wordCount uint32) uint32 {
	return wordCount<<16 | uint32(opcode)
}

func main() {
	blob := syntheticBlob()
	desc, err := artifact.FromBytes(blob)
	if err != nil {
		log.Fatalf("gpurt: decode failed: %v", err)
	}
	fmt.Printf("parsed artifact %q: threads=%v specs=%d slices=%d\n",
		desc.Name, desc.Threads, len(desc.SpecDescs), len(desc.SliceDescs))

	values := []scalar.Elem{scalar.U32Elem(128)}
	threads, err := spirv.ApplyThreadDims(desc.Threads, desc.SpecDescs, values)
	if err != nil {
		log.Fatalf("gpurt: specialize failed: %v", err)
	}
	specialized := spirv.Specialize(desc, values, threads)
	fmt.Printf("specialized threads=%v, spec_descs cleared=%v\n", specialized.Threads, len(specialized.SpecDescs) == 0)

	if _, err := spirv.ApplyThreadDims(desc.Threads, desc.SpecDescs, []scalar.Elem{scalar.U32Elem(0)}); err != nil {
		fmt.Printf("BLOCK=0 correctly rejected: %v\n", err)
	}
}
