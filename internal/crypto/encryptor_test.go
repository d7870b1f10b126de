package crypto

import (
	"strings"
	"testing"
)

func TestNewTokenEncryptor_EmptyKey(t *testing.T) {
	_, err := NewTokenEncryptor("")
	if err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewTokenEncryptor("interview-secrets-passphrase")
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}

	plaintext := `{"access_token":"abc123","expiry":"2024-01-01T10:00:00Z"}`

	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if ciphertext == plaintext {
		t.Error("ciphertext should not equal plaintext")
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestEncrypt_UniqueNonce(t *testing.T) {
	enc, _ := NewTokenEncryptor("interview-secrets-passphrase")

	first, _ := enc.Encrypt("same-token")
	second, _ := enc.Encrypt("same-token")

	if first == second {
		t.Error("same plaintext should produce different ciphertexts")
	}
}

func TestEncryptDecrypt_EmptyString(t *testing.T) {
	enc, _ := NewTokenEncryptor("interview-secrets-passphrase")

	ciphertext, err := enc.Encrypt("")
	if err != nil || ciphertext != "" {
		t.Errorf("empty plaintext should pass through, got %q err %v", ciphertext, err)
	}

	plaintext, err := enc.Decrypt("")
	if err != nil || plaintext != "" {
		t.Errorf("empty ciphertext should pass through, got %q err %v", plaintext, err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, _ := NewTokenEncryptor("first-key")
	enc2, _ := NewTokenEncryptor("second-key")

	ciphertext, _ := enc1.Encrypt("secret")
	_, err := enc2.Decrypt(ciphertext)
	if err == nil {
		t.Error("decrypting with a different key should fail")
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	enc, _ := NewTokenEncryptor("interview-secrets-passphrase")

	_, err := enc.Decrypt("not-base64!!!")
	if err == nil {
		t.Error("invalid base64 should fail")
	}

	_, err = enc.Decrypt("c2hvcnQ=") // valid base64, too short for a nonce
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Errorf("expected too-short error, got %v", err)
	}
}
