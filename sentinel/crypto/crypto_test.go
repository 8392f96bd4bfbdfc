package crypto

import (
	"bytes"
	"testing"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	k1 := DeriveKey("passphrase", salt)
	k2 := DeriveKey("passphrase", salt)
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt must derive the same key")
	}
	if bytes.Equal(k1, DeriveKey("other", salt)) {
		t.Error("different passphrases must derive different keys")
	}
	salt2, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(k1, DeriveKey("passphrase", salt2)) {
		t.Error("different salts must derive different keys")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	key := DeriveKey("secret", salt)
	sealed, err := Seal([]byte("store-key-verifier"), key)
	if err != nil {
		t.Fatal(err)
	}
	opened, err := Open(sealed, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(opened) != "store-key-verifier" {
		t.Errorf("opened = %q", opened)
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := Seal([]byte("payload"), DeriveKey("right", salt))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Open(sealed, DeriveKey("wrong", salt))
	if err == nil {
		t.Fatal("wrong key must fail authentication")
	}
	if types.CodeOf(err) != types.CodeInvalidArgument {
		t.Errorf("code = %v, want invalid argument", types.CodeOf(err))
	}
}

func TestSaltEncoding(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeSalt(EncodeSalt(salt))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(salt, decoded) {
		t.Error("salt must survive encode/decode")
	}
	if _, err := DecodeSalt("not-hex!"); err == nil {
		t.Error("invalid hex must fail")
	}
}
