package fieldcrypt

import (
	"fmt"

	"github.com/goliatone/go-household-store/model"
)

// Seal encrypts every protected field of record in place. The display
// fragment is taken from the plaintext before it is replaced. Empty fields
// stay empty.
func (c *Codec) Seal(record model.Protected) error {
	for _, f := range record.SealedFields() {
		if *f.Value == "" {
			*f.Last4 = ""
			continue
		}

		sealed, err := c.Encrypt(*f.Value)
		if err != nil {
			return fmt.Errorf("seal %s.%s: %w", record.Family(), f.Name, err)
		}
		*f.Last4 = LastFour(*f.Value)
		*f.Value = sealed
	}
	return nil
}

// Open decrypts every protected field of record in place. The display
// fragment is left as stored.
func (c *Codec) Open(record model.Protected) error {
	for _, f := range record.SealedFields() {
		if *f.Value == "" {
			continue
		}

		plain, err := c.Decrypt(*f.Value)
		if err != nil {
			return fmt.Errorf("open %s.%s: %w", record.Family(), f.Name, err)
		}
		*f.Value = plain
	}
	return nil
}
