package ga

// fitnessCache keeps the scores of successfully evaluated genomes for the
// current and previous generation. It is only touched from the controller
// goroutine.
type fitnessCache struct {
	prev map[string]float64
	cur  map[string]float64
}

func newFitnessCache() *fitnessCache {
	return &fitnessCache{
		prev: map[string]float64{},
		cur:  map[string]float64{},
	}
}

func (c *fitnessCache) get(g Genome) (float64, bool) {
	k := genomeKey(g)
	if v, ok := c.cur[k]; ok {
		return v, true
	}
	if v, ok := c.prev[k]; ok {
		c.cur[k] = v
		return v, true
	}
	return 0, false
}

func (c *fitnessCache) put(g Genome, score float64) {
	c.cur[genomeKey(g)] = score
}

// rotate drops entries older than one generation.
func (c *fitnessCache) rotate() {
	c.prev = c.cur
	c.cur = make(map[string]float64, len(c.prev))
}

func (c *fitnessCache) len() int {
	return len(c.prev) + len(c.cur)
}
