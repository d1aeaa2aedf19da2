package raster

// regionBudgetFloor is the minimum number of pixels CountRegions will
// process before giving up on a pathological mask.
const regionBudgetFloor = 200_000

// CountRegions counts the 8-connected components among pixels the marked
// predicate flags. Traversal uses an explicit frontier, never recursion,
// and a processed-pixel budget of max(200000, width*height/5) shared
// across the whole scan. When the budget runs out mid-region the partial
// region still counts once and the scan returns, trading undercounting of
// huge masks for bounded worst-case latency.
func CountRegions(width, height int, marked func(x, y int) bool) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	budget := width * height / 5
	if budget < regionBudgetFloor {
		budget = regionBudgetFloor
	}

	visited := make([]bool, width*height)
	frontier := make([]int, 0, 256)
	regions := 0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !marked(x, y) {
				continue
			}
			regions++
			frontier = append(frontier[:0], y*width+x)
			for len(frontier) > 0 {
				cur := frontier[len(frontier)-1]
				frontier = frontier[:len(frontier)-1]
				if visited[cur] {
					continue
				}
				cx := cur % width
				cy := cur / width
				if !marked(cx, cy) {
					continue
				}
				visited[cur] = true
				budget--
				if budget <= 0 {
					return regions
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx := cx + dx
						ny := cy + dy
						if nx < 0 || nx >= width || ny < 0 || ny >= height {
							continue
						}
						if n := ny*width + nx; !visited[n] && marked(nx, ny) {
							frontier = append(frontier, n)
						}
					}
				}
			}
		}
	}
	return regions
}
