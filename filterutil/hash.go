package filterutil

// FastHashBetween implements the djb2 hash algorithm over str[begin:end].
func FastHashBetween(str string, begin, end int) (hash uint32) {
	hash = uint32(5381)
	for i := begin; i < end; i++ {
		hash = (hash * 33) ^ uint32(str[i])
	}

	return hash
}

// FastHash implements the djb2 hash algorithm.  The hash is not
// cryptographic, callers must tolerate collisions.
func FastHash(str string) (hash uint32) {
	if str == "" {
		return 0
	}

	return FastHashBetween(str, 0, len(str))
}
