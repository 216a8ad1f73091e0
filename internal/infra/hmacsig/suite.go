package hmacsig

// Suite bundles the scheme behind the usecase SecretSuite port.
type Suite struct{}

func (Suite) GenerateSecret() ([]byte, error) {
	return GenerateSecret()
}

func (Suite) Fingerprint(secret []byte) string {
	return Fingerprint(secret)
}

func (Suite) Verify(secret, payload []byte, signature string) error {
	return Verify(secret, payload, signature)
}
