package backend

// cubeLevels are the channel intensities of the xterm 6x6x6 colour cube.
var cubeLevels = [6]int{0, 95, 135, 175, 215, 255}

// RGBTo256 maps a colour to the nearest xterm-256 index in the colour cube
// (16-231) or the grayscale ramp (232-255). The system colours 0-15 are
// skipped because terminals theme them.
func RGBTo256(r, g, b uint8) uint8 {
	ri, gi, bi := cubeIndex(int(r)), cubeIndex(int(g)), cubeIndex(int(b))
	cube := 16 + 36*ri + 6*gi + bi
	cubeDist := dist2(int(r), int(g), int(b), cubeLevels[ri], cubeLevels[gi], cubeLevels[bi])

	// Gray ramp: level = 8 + 10*i for i in [0, 23].
	avg := (int(r) + int(g) + int(b)) / 3
	gi2 := (avg - 3) / 10
	gi2 = max(0, min(23, gi2))
	level := 8 + 10*gi2
	grayDist := dist2(int(r), int(g), int(b), level, level, level)

	if grayDist < cubeDist {
		return uint8(232 + gi2)
	}
	return uint8(cube)
}

func cubeIndex(v int) int {
	if v < 48 {
		return 0
	}
	if v < 115 {
		return 1
	}
	return (v - 35) / 40
}

func dist2(r1, g1, b1, r2, g2, b2 int) int {
	dr, dg, db := r1-r2, g1-g2, b1-b2
	return dr*dr + dg*dg + db*db
}
