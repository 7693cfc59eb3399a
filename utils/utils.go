package utils

import "golang.org/x/crypto/bcrypt"

// HashAPIKey используется утилитами выпуска ключей; в рантайме сервис хранит
// только готовый хеш.
func HashAPIKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckAPIKeyHash(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}
