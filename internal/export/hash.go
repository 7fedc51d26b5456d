package export

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/crypto/argon2"
)

// HashType represents the different hashing algorithms available.
type HashType string

const (
	// HashTypeArgon2id uses the Argon2id algorithm for hashing.
	HashTypeArgon2id HashType = "argon2id"
	// HashTypeSHA256 uses the SHA256 algorithm for hashing.
	HashTypeSHA256 HashType = "sha256"
)

// HashID converts a single ID to a hash using the specified algorithm with the provided salt.
func HashID(id int64, salt string, hashType HashType, iterations uint32, memory uint32) string {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, uint64(id)) //nolint:gosec // snowflakes are positive

	return hashBytes(idBytes, salt, hashType, iterations, memory)
}

// HashUserID hashes a platform user ID. Numeric snowflakes hash like HashID;
// any other ID hashes its raw bytes.
func HashUserID(userID, salt string, hashType HashType, iterations, memory uint32) string {
	if id, err := strconv.ParseInt(userID, 10, 64); err == nil {
		return HashID(id, salt, hashType, iterations, memory)
	}

	return hashBytes([]byte(userID), salt, hashType, iterations, memory)
}

func hashBytes(data []byte, salt string, hashType HashType, iterations, memory uint32) string {
	var hash []byte

	switch hashType {
	case HashTypeArgon2id:
		hash = argon2.IDKey(data, []byte(salt), iterations, memory*1024, 1, 32)
	case HashTypeSHA256:
		// Iterative SHA256 hashing with salt
		hash = []byte(salt)

		h := sha256.New()
		for range iterations {
			h.Reset()
			h.Write(data)
			h.Write(hash)
			hash = h.Sum(nil)
		}
	}

	return hex.EncodeToString(hash)
}

// hashUserIDs hashes ids on a bounded pool, keeping their order. Repeated
// IDs are hashed once.
func hashUserIDs(ids []string, salt string, hashType HashType, concurrency int, iterations, memory uint32) []string {
	if len(ids) == 0 {
		return nil
	}

	unique := make(map[string]int)
	order := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, ok := unique[id]; !ok {
			unique[id] = len(order)
			order = append(order, id)
		}
	}

	hashed := make([]string, len(order))

	p := pool.New().WithMaxGoroutines(min(max(concurrency, 1), len(order)))
	for i, id := range order {
		p.Go(func() {
			hashed[i] = HashUserID(id, salt, hashType, iterations, memory)
		})
	}
	p.Wait()

	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = hashed[unique[id]]
	}

	return result
}
