package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

//go:embed prompts/face_validation.txt
var faceValidationPrompt string

//go:embed prompts/consistency_grid.txt
var consistencyGridPrompt string

//go:embed prompts/consistency_images.txt
var consistencyImagesPrompt string

// buildFaceValidationPrompt fills the validation prompt with the roster.
func buildFaceValidationPrompt(characters []string) string {
	namesJSON, _ := json.Marshal(characters)
	return fmt.Sprintf(faceValidationPrompt, string(namesJSON))
}

// buildGridPrompt fills the grid judgment prompt for one character and the
// cell page order.
func buildGridPrompt(character string, pages []int) string {
	return fmt.Sprintf(consistencyGridPrompt, character, pageList(pages))
}

// buildImagesPrompt fills the per-image judgment prompt with the attachment
// page order.
func buildImagesPrompt(character string, pages []int) string {
	return fmt.Sprintf(consistencyImagesPrompt, character, pageList(pages))
}

func pageList(pages []int) string {
	labels := make([]string, len(pages))
	for i, p := range pages {
		labels[i] = strconv.Itoa(p)
	}
	return strings.Join(labels, ", ")
}

// cropJudgmentResponse is the wire shape of the face validation reply.
type cropJudgmentResponse struct {
	Crops []CropJudgment `json:"crops"`
}
