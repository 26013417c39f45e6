/*
Copyright © 2018 the Aronnax authors.
This file is part of Aronnax.

Aronnax is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Aronnax is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Aronnax.  If not, see <http://www.gnu.org/licenses/>.
*/

package aronnax

import "sync"

// tile is the rectangular slab of interior columns owned by one worker.
type tile struct {
	ilower, iupper int // inclusive
}

// tilePool runs stencil work concurrently, one worker per tile. Workers
// are long-lived: each kernel invocation is a barrier, and the halo is
// refreshed between kernels by the caller, so within a kernel every tile
// can read its neighbors' columns without synchronization.
type tilePool struct {
	tiles    []tile
	funcChan []chan func(tile)
	wg       sync.WaitGroup
}

// newTilePool partitions interior columns 1..nx into nWorkers slabs and
// starts one worker goroutine per slab.
func newTilePool(nWorkers, nx int) *tilePool {
	p := &tilePool{
		tiles:    make([]tile, nWorkers),
		funcChan: make([]chan func(tile), nWorkers),
	}
	lo := 1
	for w := 0; w < nWorkers; w++ {
		n := nx / nWorkers
		if w < nx%nWorkers {
			n++
		}
		p.tiles[w] = tile{ilower: lo, iupper: lo + n - 1}
		lo += n
		p.funcChan[w] = make(chan func(tile))
		go func(w int) {
			for f := range p.funcChan[w] {
				f(p.tiles[w])
				p.wg.Done()
			}
		}(w)
	}
	return p
}

// run executes f once per tile and waits for all tiles to finish.
func (p *tilePool) run(f func(tile)) {
	p.wg.Add(len(p.tiles))
	for _, ch := range p.funcChan {
		ch <- f
	}
	p.wg.Wait()
}

// finalize shuts the workers down. Every termination path, happy or not,
// goes through here.
func (p *tilePool) finalize() {
	for _, ch := range p.funcChan {
		close(ch)
	}
}
