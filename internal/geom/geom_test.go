package geom

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRectContains(t *testing.T) {
	Convey("Given a road-sized rectangle", t, func() {
		r := Rect{Min: Point{X: -0.4, Y: -0.4}, Max: Point{X: 10.4, Y: 0.4}}

		Convey("Interior points are inside", func() {
			So(r.Contains(Point{X: 5, Y: 0}), ShouldBeTrue)
		})

		Convey("Boundary points are inside", func() {
			So(r.Contains(Point{X: 10.4, Y: 0.4}), ShouldBeTrue)
			So(r.Contains(Point{X: -0.4, Y: -0.4}), ShouldBeTrue)
		})

		Convey("Points past the boundary are outside", func() {
			So(r.Contains(Point{X: 10.41, Y: 0}), ShouldBeFalse)
			So(r.Contains(Point{X: 5, Y: 0.5}), ShouldBeFalse)
		})
	})
}

func TestLeavingPoint(t *testing.T) {
	Convey("Given a step crossing the rectangle boundary", t, func() {
		r := Rect{Min: Point{X: -0.4, Y: -0.4}, Max: Point{X: 10.4, Y: 0.4}}

		Convey("Moving east exits through the max-x edge", func() {
			p, err := r.LeavingPoint(Segment{Start: Point{X: 10, Y: 0.1}, End: Point{X: 12, Y: 0.1}})
			So(err, ShouldBeNil)
			So(p, ShouldResemble, Point{X: 10.4, Y: 0.1})
		})

		Convey("Moving west exits through the min-x edge", func() {
			p, err := r.LeavingPoint(Segment{Start: Point{X: 0, Y: 0}, End: Point{X: -3, Y: 0}})
			So(err, ShouldBeNil)
			So(p, ShouldResemble, Point{X: -0.4, Y: 0})
		})

		Convey("Moving south exits through the max-y edge", func() {
			p, err := r.LeavingPoint(Segment{Start: Point{X: 5, Y: 0}, End: Point{X: 5, Y: 2}})
			So(err, ShouldBeNil)
			So(p, ShouldResemble, Point{X: 5, Y: 0.4})
		})

		Convey("Moving north exits through the min-y edge", func() {
			p, err := r.LeavingPoint(Segment{Start: Point{X: 5, Y: 0}, End: Point{X: 5, Y: -2}})
			So(err, ShouldBeNil)
			So(p, ShouldResemble, Point{X: 5, Y: -0.4})
		})

		Convey("A zero-length step is an error", func() {
			_, err := r.LeavingPoint(Segment{Start: Point{X: 5, Y: 0}, End: Point{X: 5, Y: 0}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVec(t *testing.T) {
	Convey("Vector helpers", t, func() {
		So(Vec{DX: 2, DY: -3}.Scaled(0.5), ShouldResemble, Vec{DX: 1, DY: -1.5})
		So(Vec{}.IsZero(), ShouldBeTrue)
		So(Vec{DX: 0.001}.IsZero(), ShouldBeFalse)
		So(Point{X: 1, Y: 2}.Add(Vec{DX: 3, DY: -1}), ShouldResemble, Point{X: 4, Y: 1})
	})
}
