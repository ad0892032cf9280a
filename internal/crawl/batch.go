package crawl

// DefaultBatchSize is the number of symbols per batch.
const DefaultBatchSize = 100

// Batch is one numbered group of symbols.
type Batch struct {
	ID      int
	Symbols []string
}

// Chunk splits symbols into consecutive groups of at most size, preserving
// order. Concatenating the groups yields the input. size <= 0 uses
// DefaultBatchSize.
func Chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := min(start+size, len(symbols))
		chunks = append(chunks, symbols[start:end:end])
	}
	return chunks
}

// Plan numbers the chunks of symbols from startID upward.
func Plan(symbols []string, size, startID int) []Batch {
	chunks := Chunk(symbols, size)
	batches := make([]Batch, len(chunks))
	for i, c := range chunks {
		batches[i] = Batch{ID: startID + i, Symbols: c}
	}
	return batches
}
