package medragtest

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

func New(seed int64, now time.Time) *DataGen {
	g := DataGen{
		Faker: gofakeit.New(seed),
		now:   now.UTC().Truncate(time.Millisecond),
	}

	return &g
}

type DataGen struct {
	*gofakeit.Faker
	now time.Time
}

// Tokenizer returns an English sentence tokenizer with the embedded
// training data, the same one the composition root builds.
func Tokenizer() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
}
