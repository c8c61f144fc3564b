package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/plateful/plateful/internal/client/models"
)

// Show prompts for a record id and prints the record in full.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter record id to show", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	rec, err := a.recordService.Get(ctx, id)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	printRecord(rec)
	return nil
}

func printRecord(rec *models.Record) {
	fmt.Println(rec.Payload.Name)
	if rec.Payload.Description != "" {
		fmt.Println(rec.Payload.Description)
	}
	if len(rec.Payload.Tags) > 0 {
		fmt.Printf("Tags: %s\n", strings.Join(rec.Payload.Tags, ", "))
	}
	if rec.Payload.Lat != 0 || rec.Payload.Lng != 0 {
		fmt.Printf("Location: %.5f, %.5f\n", rec.Payload.Lat, rec.Payload.Lng)
	}
	if rec.Synced() {
		fmt.Printf("Server id: %s\n", rec.RemoteID)
	} else {
		fmt.Println("Not synced yet")
	}
	if rec.OriginOwnerID != "" && rec.OriginOwnerID != rec.OwnerID {
		fmt.Printf("Originally by: %s\n", rec.OriginOwnerID)
	}
	fmt.Printf("Updated: %s\n", rec.UpdatedAt.Format("2006-01-02 15:04"))
}

// Delete prompts for a record id and applies the soft-delete flow: the
// record disappears from listings at once, the server row goes away on the
// next sync pass.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter record id to delete", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	if err := a.recordService.Delete(ctx, id); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}

	fmt.Println("Deleted")
	return nil
}
