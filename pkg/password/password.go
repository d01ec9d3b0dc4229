package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algoritmos de hash reconocidos. Los hashes nuevos siempre se emiten con
// argon2id; bcrypt queda como esquema legado verificable durante la migración.
const (
	AlgoArgon2id = "argon2id"
	AlgoBcrypt   = "bcrypt"
)

// ErrUnsupportedAlgorithm: el hash almacenado usa un esquema no reconocido.
// Condición fatal y no reintentable (deuda de migración en los datos); nunca
// se degrada silenciosamente a una comparación más débil.
var ErrUnsupportedAlgorithm = errors.New("algoritmo de hash de password no soportado")

// Parámetros argon2id fijos de configuración, no elegibles por el caller.
// 64 MiB / 3 pasadas / 2 hilos, según la recomendación para login interactivo.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 2
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Hash aplica argon2id con salt aleatorio fresco: dos llamadas con el mismo
// plaintext producen hashes distintos. Devuelve el hash codificado en formato
// PHC y el nombre del algoritmo, que se persisten siempre en pareja.
func Hash(plain string) (hash, algo string, err error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("generar salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return encoded, AlgoArgon2id, nil
}

// Verify compara el plaintext contra el hash almacenado según el algoritmo
// registrado. Algoritmo desconocido -> ErrUnsupportedAlgorithm. Pura respecto
// al estado almacenado, sin efectos secundarios.
func Verify(storedHash, plain, algo string) (bool, error) {
	switch algo {
	case AlgoArgon2id:
		return verifyArgon2id(storedHash, plain)
	case AlgoBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("verificar bcrypt: %w", err)
	default:
		return false, ErrUnsupportedAlgorithm
	}
}

func verifyArgon2id(encoded, plain string) (bool, error) {
	// Formato PHC: $argon2id$v=19$m=65536,t=3,p=2$<salt-b64>$<hash-b64>
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("hash argon2id malformado")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("hash argon2id malformado: %w", err)
	}
	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("hash argon2id malformado: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decodificar salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decodificar hash: %w", err)
	}
	got := argon2.IDKey([]byte(plain), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}
