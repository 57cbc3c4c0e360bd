package dither

import (
	"math"
	"math/rand"
	"sync"
)

// bayer8 is the 8x8 ordered dither index matrix.
var bayer8 = buildBayer(3)

func buildBayer(order int) [][]int {
	m := [][]int{{0}}
	for o := 0; o < order; o++ {
		n := len(m)
		next := make([][]int, n*2)
		for y := range next {
			next[y] = make([]int, n*2)
		}
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				v := 4 * m[y][x]
				next[y][x] = v
				next[y][x+n] = v + 2
				next[y+n][x] = v + 3
				next[y+n][x+n] = v + 1
			}
		}
		m = next
	}
	return m
}

func bayerAt(x, y int) float32 {
	return (float32(bayer8[y&7][x&7])+0.5)/64 - 0.5
}

const blueNoiseSize = 32

var (
	blueNoiseOnce sync.Once
	blueNoise     []float32
)

func blueNoiseAt(x, y int) float32 {
	blueNoiseOnce.Do(func() {
		ranks := voidAndCluster(blueNoiseSize, 1.5, 1)
		n := len(ranks)
		blueNoise = make([]float32, n)
		for i, r := range ranks {
			blueNoise[i] = (float32(r)+0.5)/float32(n) - 0.5
		}
	})
	return blueNoise[(y%blueNoiseSize)*blueNoiseSize+x%blueNoiseSize]
}

// voidAndCluster ranks the pixels of a size x size torus so that every
// prefix of the ranking is evenly spread (Ulichney's method).
func voidAndCluster(size int, sigma float64, seed int64) []int {
	n := size * size
	weights := make([]float64, n)
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			wx := float64(min(dx, size-dx))
			wy := float64(min(dy, size-dy))
			weights[dy*size+dx] = gauss(wx*wx+wy*wy, sigma)
		}
	}

	on := make([]bool, n)
	energy := make([]float64, n)
	toggle := func(p int, set bool) {
		on[p] = set
		px, py := p%size, p/size
		sign := 1.0
		if !set {
			sign = -1
		}
		for y := 0; y < size; y++ {
			dy := (y - py + size) % size
			for x := 0; x < size; x++ {
				dx := (x - px + size) % size
				energy[y*size+x] += sign * weights[dy*size+dx]
			}
		}
	}
	// tightest returns the densest "on" pixel, voidest the emptiest "off".
	tightest := func() int {
		best := -1
		for i := range energy {
			if on[i] && (best < 0 || energy[i] > energy[best]) {
				best = i
			}
		}
		return best
	}
	voidest := func() int {
		best := -1
		for i := range energy {
			if !on[i] && (best < 0 || energy[i] < energy[best]) {
				best = i
			}
		}
		return best
	}

	rng := rand.New(rand.NewSource(seed))
	initial := n / 10
	for count := 0; count < initial; {
		p := rng.Intn(n)
		if !on[p] {
			toggle(p, true)
			count++
		}
	}
	for range n {
		c := tightest()
		toggle(c, false)
		v := voidest()
		if v == c {
			toggle(c, true)
			break
		}
		toggle(v, true)
	}

	prototype := make([]bool, n)
	copy(prototype, on)
	protoEnergy := make([]float64, n)
	copy(protoEnergy, energy)

	ranks := make([]int, n)
	for r := initial - 1; r >= 0; r-- {
		c := tightest()
		ranks[c] = r
		toggle(c, false)
	}

	copy(on, prototype)
	copy(energy, protoEnergy)
	for r := initial; r < n; r++ {
		v := voidest()
		ranks[v] = r
		toggle(v, true)
	}
	return ranks
}

func gauss(d2, sigma float64) float64 {
	return math.Exp(-d2 / (2 * sigma * sigma))
}
