package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func vecClose(a, b r3.Vec) bool {
	return math.Abs(a.X-b.X) < eps &&
		math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Z-b.Z) < eps
}

func TestRotateQuarterTurn(t *testing.T) {
	// 90 degrees about Z sends right to forward.
	q := AngleAxis(math.Pi/2, Up)
	got := Rotate(q, Right)
	if !vecClose(got, Fwd) {
		t.Errorf("Rotate(90deg Z, right) = %v, want %v", got, Fwd)
	}
}

func TestRotateIdentity(t *testing.T) {
	v := r3.Vec{X: 1.5, Y: -2, Z: 0.25}
	got := Rotate(IdentityQuat, v)
	if !vecClose(got, v) {
		t.Errorf("Rotate(identity, %v) = %v", v, got)
	}
}

func TestInvUndoesRotation(t *testing.T) {
	q := AngleAxis(1.1, Up)
	v := r3.Vec{X: 3, Y: 4, Z: 5}
	got := Rotate(Inv(q), Rotate(q, v))
	if !vecClose(got, v) {
		t.Errorf("inverse rotation did not restore %v, got %v", v, got)
	}
}

func TestYaw(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
	}{
		{"zero", 0},
		{"quarter", math.Pi / 2},
		{"negative", -1.2},
		{"small", 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := AngleAxis(tt.angle, Up)
			got := Yaw(q)
			if math.Abs(got-tt.angle) > 1e-9 {
				t.Errorf("Yaw(AngleAxis(%v)) = %v", tt.angle, got)
			}
		})
	}
}

func TestMulComposes(t *testing.T) {
	a := AngleAxis(0.4, Up)
	b := AngleAxis(0.3, Up)
	got := Yaw(Mul(a, b))
	if math.Abs(got-0.7) > 1e-9 {
		t.Errorf("composed yaw = %v, want 0.7", got)
	}
}

func TestNormalizeZero(t *testing.T) {
	got := Normalize(AngleAxis(0, Up))
	if !vecClose(Rotate(got, Fwd), Fwd) {
		t.Errorf("normalized identity altered forward: %v", Rotate(got, Fwd))
	}
}

func TestBoxAABBAxisAligned(t *testing.T) {
	aabb := BoxAABB(r3.Vec{X: 1, Y: 2, Z: 3}, IdentityQuat, r3.Vec{X: 4, Y: 0.75, Z: 1})
	wantMin := r3.Vec{X: -3, Y: 1.25, Z: 2}
	wantMax := r3.Vec{X: 5, Y: 2.75, Z: 4}
	if !vecClose(aabb.Min, wantMin) || !vecClose(aabb.Max, wantMax) {
		t.Errorf("AABB = %v..%v, want %v..%v", aabb.Min, aabb.Max, wantMin, wantMax)
	}
}

func TestBoxAABBRotated(t *testing.T) {
	// A long box rotated 90 degrees swaps its horizontal extents.
	aabb := BoxAABB(r3.Vec{}, AngleAxis(math.Pi/2, Up), r3.Vec{X: 4, Y: 0.75, Z: 1})
	if math.Abs(aabb.Max.X-0.75) > 1e-9 || math.Abs(aabb.Max.Y-4) > 1e-9 {
		t.Errorf("rotated AABB max = %v", aabb.Max)
	}
}

func TestOverlaps(t *testing.T) {
	a := AABB{Min: r3.Vec{}, Max: r3.Vec{X: 2, Y: 2, Z: 2}}
	b := AABB{Min: r3.Vec{X: 1, Y: 1, Z: 1}, Max: r3.Vec{X: 3, Y: 3, Z: 3}}
	c := AABB{Min: r3.Vec{X: 5, Y: 5, Z: 5}, Max: r3.Vec{X: 6, Y: 6, Z: 6}}

	if !a.Overlaps(b) {
		t.Error("expected a and b to overlap")
	}
	if a.Overlaps(c) {
		t.Error("expected a and c to be disjoint")
	}
}
