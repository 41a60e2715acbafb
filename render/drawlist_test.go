// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spine/internal/gputest"
)

// testDraw resolves everything a colored draw needs and stages its data.
func testDraw(t *testing.T, r *Resource, vertices int, indices []uint16) *DrawObject {
	t.Helper()
	slot := mustSlot(t, r.Uniforms)
	defer slot.Release()

	p, err := r.Pipelines.Resolve(testPipelineState(ShaderColored))
	if err != nil {
		t.Fatal(err)
	}
	bg, err := r.BindGroups.Resolve(ShaderColored, slot, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	stride := ShaderColored.Stride()
	vr, err := r.Vertices.Collect(make([]byte, uint64(vertices)*stride), stride)
	if err != nil {
		t.Fatal(err)
	}
	var ir *IndexRange
	if len(indices) > 0 {
		rng, err := r.Indices.Collect(Uint16Bytes(indices), 2)
		if err != nil {
			t.Fatal(err)
		}
		ir = &IndexRange{Range: rng, Format: gputypes.IndexFormatUint16}
	}
	return NewDrawObject(p, bg, vr, ir, uint32(vertices), uint32(len(indices)))
}

func TestDrawListEncode(t *testing.T) {
	r, _ := newTestResource(t)

	var list DrawList
	indexed := testDraw(t, r, 4, []uint16{0, 1, 2, 2, 3, 0})
	plain := testDraw(t, r, 3, nil)
	list.Append(indexed)
	list.Append(plain)

	if list.Len() != 2 || !indexed.Indexed() || plain.Indexed() {
		t.Fatalf("list len %d, indexed flags %v/%v", list.Len(), indexed.Indexed(), plain.Indexed())
	}
	if plain.InstanceCount != 1 {
		t.Errorf("InstanceCount = %d, want 1", plain.InstanceCount)
	}

	var pass gputest.Pass
	list.Encode(&pass)

	want := []string{
		fmt.Sprintf("pipeline %d", indexed.Pipeline()),
		fmt.Sprintf("bindgroup 0=%d", indexed.BindGroup()),
		fmt.Sprintf("vertex 0=%d@0", indexed.Vertices.Buffer),
		fmt.Sprintf("index %d u16@0", indexed.Indices.Buffer),
		"drawindexed 6 1 0 0 0",
		fmt.Sprintf("pipeline %d", plain.Pipeline()),
		fmt.Sprintf("bindgroup 0=%d", plain.BindGroup()),
		fmt.Sprintf("vertex 0=%d@%d", plain.Vertices.Buffer, 4*ShaderColored.Stride()),
		"draw 3 1 0 0",
	}
	if len(pass.Commands) != len(want) {
		t.Fatalf("commands:\n%s\nwant %d commands", pass.String(), len(want))
	}
	for i := range want {
		if pass.Commands[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, pass.Commands[i], want[i])
		}
	}
}

func TestDrawListClearReleasesHandles(t *testing.T) {
	r, _ := newTestResource(t)

	var list DrawList
	list.Append(testDraw(t, r, 3, nil))
	list.Append(testDraw(t, r, 3, nil))

	if st := r.Pipelines.Stats(); st.Idle != 0 {
		t.Fatalf("pipeline idle with draws referencing it: %+v", st)
	}
	list.Clear()
	if list.Len() != 0 {
		t.Errorf("Len() = %d after Clear", list.Len())
	}
	if st := r.Pipelines.Stats(); st.Idle != 1 {
		t.Errorf("idle pipelines = %d, want 1", st.Idle)
	}
	if st := r.BindGroups.Stats(); st.Idle != st.Len {
		t.Errorf("bind groups idle/len = %d/%d, want all idle", st.Idle, st.Len)
	}
}
