package weaviate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/medkbase/medrag"
)

func TestDecodeGetChunkResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title       string
		given       *models.GraphQLResponse
		expected    []medrag.ScoredChunk
		expectedErr error
	}{
		{
			"Missing Get key",
			&models.GraphQLResponse{
				Data: map[string]models.JSONObject{},
			},
			nil,
			fmt.Errorf("get key not found in result"),
		},
		{
			"Missing certainty",
			&models.GraphQLResponse{
				Data: map[string]models.JSONObject{
					"Get": map[string]any{
						"Chunk": []any{
							map[string]any{
								"chunk_id":    "NCI_DIABETES_01",
								"text":        "foo",
								"_additional": map[string]any{},
							},
						},
					},
				},
			},
			nil,
			fmt.Errorf("expected certainty in chunk"),
		},
		{
			"Valid results",
			&models.GraphQLResponse{
				Data: map[string]models.JSONObject{
					"Get": map[string]any{
						"Chunk": []any{
							map[string]any{
								"chunk_id":    "NCI_DIABETES_01",
								"text":        "foo",
								"topic":       "diabetes",
								"source":      "NCI",
								"source_type": "nih",
								"_additional": map[string]any{
									"certainty": 0.91,
								},
							},
							map[string]any{
								"chunk_id": "WHO_CANCER_05",
								"text":     "bar",
								"_additional": map[string]any{
									"certainty": 0.42,
								},
							},
						},
					},
				},
			},
			[]medrag.ScoredChunk{
				{
					Chunk: medrag.Chunk{
						ID:         "NCI_DIABETES_01",
						Text:       "foo",
						Topic:      "diabetes",
						Source:     "NCI",
						SourceType: "nih",
					},
					Score: 0.91,
				},
				{
					Chunk: medrag.Chunk{
						ID:   "WHO_CANCER_05",
						Text: "bar",
					},
					Score: 0.42,
				},
			},
			nil,
		},
	}

	for i, tc := range tests {
		t.Run(fmt.Sprintf("#%v_%v", i, tc.title), func(t *testing.T) {
			actual, err := decodeGetChunkResults(tc.given)
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.Equal(t, tc.expectedErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
