package program

import "crypto/sha256"

// InstructionDiscriminator returns the 8-byte tag that routes an
// instruction to its handler: sha256("global:<snake_case_name>")[0:8].
func InstructionDiscriminator(name string) [8]byte {
	return discriminator("global:" + name)
}

// AccountDiscriminator returns the 8-byte prefix stored at the start of an
// account's data: sha256("account:<StructName>")[0:8]. Readers check it
// before decoding to reject accounts of the wrong type.
func AccountDiscriminator(structName string) [8]byte {
	return discriminator("account:" + structName)
}

func discriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
