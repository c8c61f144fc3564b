package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// Edit prompts for a record id and replacement fields, then applies the
// update. Leaving a field empty keeps its current value. Editing a record
// shared by another curator lands on the acting curator's own copy; the
// user is told when that happens.
func (a *App) Edit(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter record id to edit", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	rec, err := a.recordService.Get(ctx, id)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Printf("Editing %s (empty input keeps the current value)\n", rec.Payload.Name)
	payload := rec.Payload

	name, err := getSimpleText(a.reader, fmt.Sprintf("Name [%s]", payload.Name), os.Stdout)
	if err != nil {
		return err
	}
	if name != "" {
		payload.Name = name
	}

	description, err := GetMultiline(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}
	if description != "" {
		payload.Description = description
	}

	tagsLine, err := getSimpleText(a.reader, "Tags (comma separated)", os.Stdout)
	if err != nil {
		return err
	}
	if strings.TrimSpace(tagsLine) != "" {
		payload.Tags = splitTags(tagsLine)
	}

	lat, err := a.editCoordinate("Latitude (decimal degrees)", payload.Lat)
	if err != nil {
		return err
	}
	payload.Lat = lat

	lng, err := a.editCoordinate("Longitude (decimal degrees)", payload.Lng)
	if err != nil {
		return err
	}
	payload.Lng = lng

	updated, err := a.recordService.Update(ctx, a.curatorID, id, payload)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	if updated.LocalID != id {
		fmt.Printf("Saved as your own copy (%s)\n", updated.LocalID)
	} else {
		fmt.Println("Saved")
	}
	return nil
}

// editCoordinate keeps prompting until the input parses as a float. Empty
// input keeps the current value.
func (a *App) editCoordinate(prompt string, current float64) (float64, error) {
	for {
		line, err := getSimpleText(a.reader, fmt.Sprintf("%s [%g]", prompt, current), os.Stdout)
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(line) == "" {
			return current, nil
		}
		value, err := parseCoordinate(line)
		if err != nil {
			fmt.Println("Not a number, try again")
			continue
		}
		return value, nil
	}
}
