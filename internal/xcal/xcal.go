// Package xcal renders occurrence lists in the XML representation of
// iCalendar (xCal).
package xcal

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/icalrecur/caltime"
	"github.com/cyp0633/icalrecur/recurrence"
	"github.com/emersion/go-ical"
)

// Namespace is the xCal namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// Element names
const (
	TagICalendar    = "icalendar"
	TagVCalendar    = "vcalendar"
	TagComponents   = "components"
	TagProperties   = "properties"
	TagParameters   = "parameters"
	TagText         = "text"
	TagDate         = "date"
	TagDateTime     = "date-time"
	TagTZID         = "tzid"
	TagUID          = "uid"
	TagSummary      = "summary"
	TagDTStart      = "dtstart"
	TagDTEnd        = "dtend"
	TagRecurrenceID = "recurrence-id"
)

// Render builds an xCal document holding one component per occurrence.
func Render(occs []recurrence.Occurrence) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(TagICalendar)
	root.CreateAttr("xmlns", Namespace)
	components := root.CreateElement(TagVCalendar).CreateElement(TagComponents)

	for _, occ := range occs {
		comp := components.CreateElement(componentName(occ.Item))
		props := comp.CreateElement(TagProperties)

		if occ.Item != nil {
			addText(props, TagUID, occ.Item.UID)
			if occ.Item.Component != nil {
				if prop := occ.Item.Component.Props.Get(ical.PropSummary); prop != nil {
					addText(props, TagSummary, prop.Value)
				}
			}
		}
		addValue(props, TagDTStart, occ.Start())
		if occ.Period.Kind() == caltime.KindPeriod {
			end, err := occ.End()
			if err != nil {
				return nil, fmt.Errorf("occurrence %s: %w", occ.Start(), err)
			}
			addValue(props, TagDTEnd, end)
		}
		if occ.Item != nil && occ.Item.IsRecurring() {
			addValue(props, TagRecurrenceID, occ.RecurrenceID)
		}
	}
	return doc, nil
}

// Write renders occs to w, indented.
func Write(w io.Writer, occs []recurrence.Occurrence) error {
	doc, err := Render(occs)
	if err != nil {
		return err
	}
	doc.Indent(2)
	_, err = doc.WriteTo(w)
	return err
}

func componentName(item *recurrence.Item) string {
	if item != nil && item.Component != nil && item.Component.Name != "" {
		return strings.ToLower(item.Component.Name)
	}
	return strings.ToLower(ical.CompEvent)
}

func addText(parent *etree.Element, tag, text string) {
	parent.CreateElement(tag).CreateElement(TagText).SetText(text)
}

// addValue writes a DATE or DATE-TIME property, with a tzid parameter for
// zoned values.
func addValue(parent *etree.Element, tag string, v caltime.DateTime) {
	prop := parent.CreateElement(tag)
	if v.HasTime() && v.Zone().Kind() == caltime.Zoned {
		prop.CreateElement(TagParameters).CreateElement(TagTZID).CreateElement(TagText).SetText(v.Zone().ID())
	}
	prop.AddChild(valueElement(v))
}

func valueElement(v caltime.DateTime) *etree.Element {
	if !v.HasTime() {
		el := etree.NewElement(TagDate)
		el.SetText(v.Wall().Format("2006-01-02"))
		return el
	}
	el := etree.NewElement(TagDateTime)
	text := v.Wall().Format("2006-01-02T15:04:05")
	if v.Zone().IsUTC() {
		text += "Z"
	}
	el.SetText(text)
	return el
}
