package bvh

import (
	"testing"

	"github.com/achilleasa/stilltrace/types"
)

type mockVolume struct {
	bbox [2]types.Vec3
}

func (v *mockVolume) BBox() [2]types.Vec3 {
	return v.bbox
}

func (v *mockVolume) Center() types.Vec3 {
	return v.bbox[0].Add(v.bbox[1]).Mul(0.5)
}

func TestLeafCallback(t *testing.T) {
	type primSpec struct {
		min types.Vec3
		max types.Vec3
	}

	primSpecs := []primSpec{
		{types.Vec3{-2, 0, -2}, types.Vec3{-1, 1, -1}},
		{types.Vec3{1, 0, -2}, types.Vec3{2, 1, -1}},
		{types.Vec3{-2, 0, 1}, types.Vec3{-1, 1, 2}},
		{types.Vec3{1, 0, 1}, types.Vec3{2, 1, 2}},
	}

	itemList := make([]BoundedVolume, len(primSpecs))
	for idx, ps := range primSpecs {
		itemList[idx] = &mockVolume{bbox: [2]types.Vec3{ps.min, ps.max}}
	}

	var cbCount = 0
	var expItemListCount = 0
	cb := func(leaf *Node, itemList []BoundedVolume) {
		cbCount++
		if len(itemList) != expItemListCount {
			t.Fatalf("expected leaf callback to be called with %d items; got %d", expItemListCount, len(itemList))
		}
	}

	var expCount = 0

	// Partition each item in a single leaf
	cbCount = 0
	expItemListCount = 1
	treeNodes, stats := Build(itemList, 1, cb, SurfaceAreaHeuristic)

	expCount = 4
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 7
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}
	if stats.PartitionedItems != 4 || stats.Leafs != 4 {
		t.Fatalf("expected 4 leafs holding 4 items; got %+v", stats)
	}

	// Partition two items in a single leaf
	cbCount = 0
	expItemListCount = 2
	treeNodes, _ = Build(itemList, 2, cb, SurfaceAreaHeuristic)

	expCount = 2
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 3
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}
}

func TestEmptyWorkList(t *testing.T) {
	nodes, stats := Build(nil, 1, func(*Node, []BoundedVolume) {
		t.Fatal("leaf callback invoked for an empty work list")
	}, SurfaceAreaHeuristic)
	if len(nodes) != 0 || stats.TotalItems != 0 {
		t.Fatalf("expected empty tree; got %d nodes", len(nodes))
	}
}

func TestNodeHit(t *testing.T) {
	node := Node{}
	node.SetBBox([2]types.Vec3{{-1, -1, -1}, {1, 1, 1}})

	type spec struct {
		origin types.Vec3
		dir    types.Vec3
		tMax   float32
		exp    bool
	}
	specs := []spec{
		{types.Vec3{0, 0, 5}, types.Vec3{0, 0, -1}, 100, true},
		{types.Vec3{0, 0, 5}, types.Vec3{0, 0, 1}, 100, false},
		{types.Vec3{0, 0, 5}, types.Vec3{0, 0, -1}, 3, false},
		{types.Vec3{5, 5, 5}, types.Vec3{0, 0, -1}, 100, false},
		{types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, 100, true},
	}

	for index, s := range specs {
		invDir := types.Vec3{1 / s.dir[0], 1 / s.dir[1], 1 / s.dir[2]}
		if got := node.Hit(s.origin, invDir, s.tMax); got != s.exp {
			t.Fatalf("[spec %d] expected hit test to return %t; got %t", index, s.exp, got)
		}
	}
}
