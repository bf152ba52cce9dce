package payuni

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
)

const (
	hashKeySize       = 32 // AES-256
	hashIVSize        = 16 // 作为 GCM nonce
	gcmTagSize        = 16
	envelopeSeparator = ":::"
)

var envelopeEncoding = base64.StdEncoding.Strict()

// Codec PAYUNi 加解密与完整性校验
// HashKey 必须为 32 字节、HashIV 必须为 16 字节，不截断也不补齐。
type Codec struct {
	key  []byte
	iv   []byte
	aead cipher.AEAD
}

// NewCodec 校验商户密钥并创建 Codec
func NewCodec(hashKey, hashIV string) (*Codec, error) {
	if len(hashKey) != hashKeySize {
		return nil, apperr.Validation(fmt.Sprintf("payuni hash key must be %d bytes, got %d", hashKeySize, len(hashKey)))
	}
	if len(hashIV) != hashIVSize {
		return nil, apperr.Validation(fmt.Sprintf("payuni hash iv must be %d bytes, got %d", hashIVSize, len(hashIV)))
	}
	block, err := aes.NewCipher([]byte(hashKey))
	if err != nil {
		return nil, apperr.WrapError(apperr.CodeValidation, "payuni hash key invalid", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, hashIVSize)
	if err != nil {
		return nil, apperr.WrapError(apperr.CodeInternal, "payuni cipher init failed", err)
	}
	return &Codec{key: []byte(hashKey), iv: []byte(hashIV), aead: aead}, nil
}

// Encrypt 加密明文，返回 hex(base64(密文) + ":::" + base64(tag))
func (c *Codec) Encrypt(plaintext string) string {
	sealed := c.aead.Seal(nil, c.iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]
	joined := envelopeEncoding.EncodeToString(ciphertext) + envelopeSeparator + envelopeEncoding.EncodeToString(tag)
	return hex.EncodeToString([]byte(joined))
}

// Decrypt 解密 EncryptInfo，只接受 Encrypt 输出的小写十六进制
func (c *Codec) Decrypt(envelope string) (string, error) {
	envelope = strings.TrimSpace(envelope)
	if !isLowerHex(envelope) {
		return "", cryptoError("envelope is not lowercase hex", nil)
	}
	joined, err := hex.DecodeString(envelope)
	if err != nil {
		return "", cryptoError("envelope is not hex", err)
	}
	encodedCipher, encodedTag, ok := strings.Cut(string(joined), envelopeSeparator)
	if !ok {
		return "", cryptoError("envelope separator missing", nil)
	}
	ciphertext, err := envelopeEncoding.DecodeString(encodedCipher)
	if err != nil {
		return "", cryptoError("ciphertext is not base64", err)
	}
	tag, err := envelopeEncoding.DecodeString(encodedTag)
	if err != nil {
		return "", cryptoError("tag is not base64", err)
	}
	if len(tag) != gcmTagSize {
		return "", cryptoError(fmt.Sprintf("tag must be %d bytes", gcmTagSize), nil)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := c.aead.Open(nil, c.iv, sealed, nil)
	if err != nil {
		return "", cryptoError("authentication failed", err)
	}
	return string(plaintext), nil
}

// Hash 计算 HashInfo：upper(hex(sha256(HashKey + EncryptInfo + HashIV)))
func (c *Codec) Hash(envelope string) string {
	h := sha256.New()
	h.Write(c.key)
	h.Write([]byte(envelope))
	h.Write(c.iv)
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// VerifyHash 常量时间比对 HashInfo，大小写必须与 Hash 输出一致
func (c *Codec) VerifyHash(envelope, hashInfo string) error {
	expected := c.Hash(envelope)
	given := strings.TrimSpace(hashInfo)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(given)) != 1 {
		return cryptoError("hash info mismatch", nil)
	}
	return nil
}

// Open 先校验 HashInfo（非空时）再解密
func (c *Codec) Open(envelope, hashInfo string) (string, error) {
	if strings.TrimSpace(hashInfo) != "" {
		if err := c.VerifyHash(envelope, hashInfo); err != nil {
			return "", err
		}
	}
	return c.Decrypt(envelope)
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}

func cryptoError(message string, err error) error {
	return apperr.WrapError(apperr.CodeCrypto, "payuni decrypt failed: "+message, err)
}
