package dither

import "sync"

// kernel distributes quantization error to neighbours. Each tap is
// {dx, dy, weight}; weights are in units of 1/divisor.
type kernel struct {
	taps    [][3]int
	divisor float32

	once  sync.Once
	stamp []float32
}

var (
	floydSteinberg = &kernel{
		taps: [][3]int{
			{1, 0, 7},
			{-1, 1, 3},
			{0, 1, 5},
			{1, 1, 1},
		},
		divisor: 16,
	}
	// Atkinson spreads 6/8 of the error and drops the rest.
	atkinson = &kernel{
		taps: [][3]int{
			{1, 0, 1}, {2, 0, 1},
			{-1, 1, 1}, {0, 1, 1}, {1, 1, 1},
			{0, 2, 1},
		},
		divisor: 8,
	}
	sierra = &kernel{
		taps: [][3]int{
			{1, 0, 5}, {2, 0, 3},
			{-2, 1, 2}, {-1, 1, 4}, {0, 1, 5}, {1, 1, 4}, {2, 1, 2},
			{-1, 2, 2}, {0, 2, 3}, {1, 2, 2},
		},
		divisor: 32,
	}
)

// diffuse runs scan-order error diffusion over buf.
func (d *Ditherer) diffuse(buf []uint8, width, height, levels int, k *kernel) {
	n := width * height * 3
	if cap(d.errBuf) < n {
		d.errBuf = make([]float32, n)
	}
	errs := d.errBuf[:n]
	clear(errs)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			o := i * 4
			if buf[o+3] == 0 {
				continue
			}
			for ch := 0; ch < 3; ch++ {
				v := float32(buf[o+ch]) + errs[i*3+ch]
				q := quantize(v, levels)
				buf[o+ch] = q
				e := (v - float32(q)) / k.divisor
				if e == 0 {
					continue
				}
				for _, t := range k.taps {
					tx, ty := x+t[0], y+t[1]
					if tx < 0 || tx >= width || ty >= height {
						continue
					}
					errs[(ty*width+tx)*3+ch] += e * float32(t[2])
				}
			}
		}
	}
}

const stampSize = 64

// thresholds returns the kernel's fixed threshold stamp: the error each
// pixel receives when the kernel dithers a near mid-gray tile to one bit.
// Values lie in [-0.5, 0.5].
func (k *kernel) thresholds() []float32 {
	k.once.Do(func() {
		field := make([]float32, stampSize*stampSize)
		for y := 0; y < stampSize; y++ {
			for x := 0; x < stampSize; x++ {
				field[y*stampSize+x] = 0.5 + 0.2*gradientNoise(x, y)
			}
		}
		k.stamp = make([]float32, len(field))
		for y := 0; y < stampSize; y++ {
			for x := 0; x < stampSize; x++ {
				i := y*stampSize + x
				in := field[i] - (0.5 + 0.2*gradientNoise(x, y))
				k.stamp[i] = max(-0.5, min(0.5, in))
				var q float32
				if field[i] >= 0.5 {
					q = 1
				}
				e := (field[i] - q) / k.divisor
				for _, t := range k.taps {
					tx, ty := (x+t[0]+stampSize)%stampSize, y+t[1]
					if ty >= stampSize {
						continue
					}
					field[ty*stampSize+tx] += e * float32(t[2])
				}
			}
		}
	})
	return k.stamp
}

// stable applies the kernel's fixed threshold stamp. The result for a
// pixel depends only on its value and position.
func stable(buf []uint8, width, height, levels int, k *kernel) {
	stamp := k.thresholds()
	ordered(buf, width, height, levels, func(x, y int) float32 {
		return stamp[(y%stampSize)*stampSize+x%stampSize]
	})
}

// gradientNoise is interleaved gradient noise centred on zero.
func gradientNoise(x, y int) float32 {
	f := 0.06711056*float64(x) + 0.00583715*float64(y)
	f -= float64(int(f))
	v := 52.9829189 * f
	v -= float64(int(v))
	return float32(v - 0.5)
}
