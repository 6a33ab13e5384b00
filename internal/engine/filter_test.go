package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hokieplan/schedule-api/internal/models"
)

func TestFilterRowsDropsBoilerplate(t *testing.T) {
	rows := []models.RawSectionRow{
		{CRN: "12345", Course: "CS2114", Title: "Data Structures", ScheduleType: "Lecture", Days: "MWF", BeginTime: "9:05AM", EndTime: "9:55AM", Location: "Hall 340"},
		{CRN: "?", Course: "CS2114", Title: "Data Structures"},
		{CRN: "12a45", Course: "CS2114", Title: "Data Structures"},
		{CRN: "12346", Course: "CS2114", Title: "Comments for CRN 12346: see department"},
		{CRN: "12347", Course: "CS2114", Title: strings.Repeat("x", 150)},
		{CRN: "12348", Course: ""},
	}
	kept := FilterRows(rows)
	assert.Len(t, kept, 1)
	assert.Equal(t, "12345", kept[0].CRN)
}

func TestFilterRowsKeepsOnlineRows(t *testing.T) {
	// Online rows legitimately have no days or times.
	rows := []models.RawSectionRow{
		{CRN: "67890", Course: "CS3654", Title: "Intro Data Analytics", ScheduleType: "Online Lecture", Modality: "Online: Asynchronous"},
	}
	assert.Len(t, FilterRows(rows), 1)
}

func TestClassifyRowsStructured(t *testing.T) {
	rows := map[string][]models.RawSectionRow{
		"CS101": {
			{CRN: "100", Course: "CS101", ScheduleType: "Lecture", Modality: "Face-to-Face", Days: "MWF", BeginTime: "9:05AM", EndTime: "9:55AM"},
			{CRN: "101", Course: "CS101", ScheduleType: "Lecture", Modality: "Face-to-Face", Days: "TR", BeginTime: "11:00AM", EndTime: "12:15PM"},
		},
	}
	assert.Equal(t, ComplexityStructured, ClassifyRows(rows))
}

func TestClassifyRowsIrregular(t *testing.T) {
	base := models.RawSectionRow{CRN: "100", Course: "CS101", ScheduleType: "Lecture", Modality: "Face-to-Face", Days: "MWF", BeginTime: "9:05AM", EndTime: "9:55AM"}

	lab := base
	lab.ScheduleType = "Lab"

	online := base
	online.Modality = "Online with Synchronous Mtgs."

	arranged := base
	arranged.Days = "ARR"
	arranged.BeginTime = "ARR"

	async := base
	async.BeginTime = ""

	multiBlock := []models.RawSectionRow{base, {CRN: "100", Course: "CS101", ScheduleType: "Lecture", Days: "T", BeginTime: "3:30PM", EndTime: "5:20PM"}}

	cases := map[string][]models.RawSectionRow{
		"lab":        {lab},
		"online":     {online},
		"arranged":   {arranged},
		"async":      {async},
		"multiBlock": multiBlock,
	}
	for name, rows := range cases {
		assert.Equal(t, ComplexityIrregular, ClassifyRows(map[string][]models.RawSectionRow{"CS101": rows}), "case %s", name)
	}
}
