package main

import (
	"fmt"
	"os"

	"github.com/aldiyarbek/tournament-bot/utils"
)

// Печатает bcrypt-хеш API-ключа для переменной окружения ADMIN_API_KEY_HASH.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashkey <api-key>")
		os.Exit(1)
	}
	hash, err := utils.HashAPIKey(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashkey:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
