package cli

import (
	"errors"
	"maps"
	"slices"

	"github.com/fpang/captioncraft/internal/filehandler"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrPickCanceled is returned when the user closes the picker without a choice.
var ErrPickCanceled = errors.New("file selection canceled")

// PickImage opens the native file dialog filtered to supported images and
// returns the chosen path.
func PickImage() (string, error) {
	patterns := make([]string, 0, len(filehandler.SupportedImageExtensions))
	for _, ext := range slices.Sorted(maps.Keys(filehandler.SupportedImageExtensions)) {
		patterns = append(patterns, "*"+ext)
	}

	selected, err := zenity.SelectFile(
		zenity.Title("Select an image to caption"),
		zenity.FileFilters{
			{Name: "Images", Patterns: patterns},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickCanceled
		}
		log.Error().Err(err).Msg("File picker failed")
		return "", err
	}

	log.Info().Str("path", selected).Msg("File picked via native dialog")
	return selected, nil
}
