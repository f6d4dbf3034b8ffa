// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

// Command hashpw prints a fresh JWT_SECRET and the ADMIN_PASSWORD_HASH for
// a password, ready to paste into .env:
//
//	go run ./cmd/hashpw 'correct horse battery staple'
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/bcrypt"
)

const (
	secretBytes = 64
	bcryptCost  = 10
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "Usage: hashpw <password>")
		fmt.Fprintln(os.Stderr, "Prints JWT_SECRET and ADMIN_PASSWORD_HASH lines for .env")
		os.Exit(2)
	}

	secret, hash, err := generate(os.Args[1], rand.Reader)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}

	fmt.Println("JWT_SECRET=" + secret)
	fmt.Println("ADMIN_PASSWORD_HASH=" + hash)
}

// generate returns a hex JWT secret read from random and a bcrypt hash of password.
func generate(password string, random io.Reader) (secret, hash string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", "", fmt.Errorf("read random bytes: %w", err)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	return hex.EncodeToString(buf), string(h), nil
}
