package spectral

// legendre fills p, dp and d2p with P_n(s), P_n'(s) and P_n''(s) for n = 0..len(p)-1.
func legendre(s float64, p, dp, d2p []float64) {
	n := len(p)
	if n == 0 {
		return
	}
	p[0], dp[0], d2p[0] = 1, 0, 0
	if n == 1 {
		return
	}
	p[1], dp[1], d2p[1] = s, 1, 0
	for k := 1; k+1 < n; k++ {
		fk := float64(k)
		p[k+1] = ((2*fk+1)*s*p[k] - fk*p[k-1]) / (fk + 1)
		dp[k+1] = dp[k-1] + (2*fk+1)*p[k]
		d2p[k+1] = d2p[k-1] + (2*fk+1)*dp[k]
	}
}

// basis is a tensor product of Legendre polynomials, each axis mapped from a
// fixed interval onto [-1, 1]. The intervals never change between rounds so a
// parameter vector means the same function on every sub-domain.
type basis struct {
	degree int
	lower  []float64
	width  []float64

	// index[k][a] is the polynomial order used on axis a by feature k.
	index [][]int
}

func newBasis(degree int, lower, width []float64) *basis {
	dims := len(lower)
	order := degree + 1
	size := 1
	for range lower {
		size *= order
	}

	index := make([][]int, size)
	for k := range index {
		idx := make([]int, dims)
		rem := k
		for a := dims - 1; a >= 0; a-- {
			idx[a] = rem % order
			rem /= order
		}
		index[k] = idx
	}

	return &basis{
		degree: degree,
		lower:  append([]float64(nil), lower...),
		width:  append([]float64(nil), width...),
		index:  index,
	}
}

func (b *basis) size() int { return len(b.index) }

func (b *basis) dims() int { return len(b.lower) }

// axisTables holds per-axis polynomial values and chain-ruled derivatives at one point.
type axisTables struct {
	p, dp, d2p [][]float64
}

func (b *basis) tables(x []float64) axisTables {
	order := b.degree + 1
	t := axisTables{
		p:   make([][]float64, len(x)),
		dp:  make([][]float64, len(x)),
		d2p: make([][]float64, len(x)),
	}
	for a, v := range x {
		t.p[a] = make([]float64, order)
		t.dp[a] = make([]float64, order)
		t.d2p[a] = make([]float64, order)

		scale := 2 / b.width[a]
		legendre(scale*(v-b.lower[a])-1, t.p[a], t.dp[a], t.d2p[a])
		for n := range t.dp[a] {
			t.dp[a][n] *= scale
			t.d2p[a][n] *= scale * scale
		}
	}
	return t
}

// values writes phi_k(x) into out.
func (b *basis) values(x []float64, out []float64) {
	t := b.tables(x)
	for k, idx := range b.index {
		v := 1.0
		for a, n := range idx {
			v *= t.p[a][n]
		}
		out[k] = v
	}
}

// residual writes d(phi_k)/dt - diffusivity * laplacian(phi_k) into out.
// Axis 0 is time; the rest are space.
func (b *basis) residual(x []float64, diffusivity float64, out []float64) {
	t := b.tables(x)
	dims := len(x)
	for k, idx := range b.index {
		dt := t.dp[0][idx[0]]
		for a := 1; a < dims; a++ {
			dt *= t.p[a][idx[a]]
		}

		lap := 0.0
		for d := 1; d < dims; d++ {
			term := t.p[0][idx[0]]
			for a := 1; a < dims; a++ {
				if a == d {
					term *= t.d2p[a][idx[a]]
				} else {
					term *= t.p[a][idx[a]]
				}
			}
			lap += term
		}

		out[k] = dt - diffusivity*lap
	}
}
