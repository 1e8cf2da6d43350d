package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/fatih/color"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func ok() string   { return color.GreenString("✓") }
func fail() string { return color.RedString("✗") }

func onOff(open bool) string {
	if open {
		return color.GreenString("open")
	}
	return color.YellowString("closed")
}

func roleBadge(r models.UserRole) string {
	if r == models.RoleAdmin {
		return color.MagentaString(string(r))
	}
	return string(r)
}

// statusBadge colors a status by how much attention it needs.
func statusBadge(s models.ShipmentStatus) string {
	switch s {
	case models.StatusDelivered:
		return color.GreenString(string(s))
	case models.StatusInTransit, models.StatusOutForDelivery:
		return color.CyanString(string(s))
	case models.StatusException, models.StatusDeliveryFailure:
		return color.RedString(string(s))
	case models.StatusExpired:
		return color.HiBlackString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func writeShipment(w io.Writer, sh *models.Shipment) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", sh.ID, sh.TrackingNumber, sh.CarrierCode, statusBadge(sh.Status), sh.Description)
}
