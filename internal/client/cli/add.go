package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/plateful/plateful/internal/client/models"
)

// Add interactively collects a restaurant record and stores it locally. The
// record syncs to the server on the next pass.
func (a *App) Add(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Restaurant name", os.Stdout)
	if err != nil {
		return err
	}
	if name == "" {
		fmt.Println("Name is required")
		return nil
	}

	description, err := GetMultiline(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}

	tagsLine, err := getSimpleText(a.reader, "Tags (comma separated, optional)", os.Stdout)
	if err != nil {
		return err
	}

	lat, err := a.getCoordinate(ctx, "Latitude (decimal degrees, optional)")
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	lng, err := a.getCoordinate(ctx, "Longitude (decimal degrees, optional)")
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	payload := models.Payload{
		Name:        name,
		Description: description,
		Tags:        splitTags(tagsLine),
		Lat:         lat,
		Lng:         lng,
	}

	rec, err := a.recordService.Add(ctx, a.curatorID, payload)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Printf("Added %s (%s)\n", rec.Payload.Name, rec.LocalID)
	return nil
}

// getCoordinate keeps prompting until the input parses as a float or is
// left empty (which yields 0).
func (a *App) getCoordinate(ctx context.Context, prompt string) (float64, error) {
	for {
		line, err := getSimpleText(a.reader, prompt, os.Stdout)
		if err != nil {
			return 0, err
		}
		value, err := parseCoordinate(line)
		if err != nil {
			fmt.Println("Not a number, try again")
			continue
		}
		return value, nil
	}
}

func splitTags(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	parts := strings.Split(line, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseCoordinate(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
