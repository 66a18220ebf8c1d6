// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"sort"
)

// Unassigned is the member used by assignment vocabularies when nobody is
// assigned. Records store it as SQL NULL.
const Unassigned = ""

var (
	LeadOrigins = MustTable("lead_origin", "website",
		[]string{
			"facebook", "google", "instagram", "trade-show", "whatsapp",
			"commercial", "referral", "website", "phone", "email",
			"walk-in", "tiktok", "youtube", "linkedin", "twitter",
		},
		map[string]string{
			"Google Text": "google",
			"Website":     "website",
			"Trade Show":  "trade-show",
			"Referral":    "referral",
			"Commercial":  "commercial",
			"WhatsApp":    "whatsapp",
			"Facebook":    "facebook",
			"Instagram":   "instagram",
			"Phone":       "phone",
			"Email":       "email",
		})

	LeadStatuses = MustTable("lead_status", "new",
		[]string{
			"new", "in-progress", "quoted", "sold",
			"not-interested", "not-service-area", "not-compatible",
		},
		map[string]string{
			"New":              "new",
			"In Progress":      "in-progress",
			"Sold":             "sold",
			"Not Interested":   "not-interested",
			"Not Service Area": "not-service-area",
			"Not Compatible":   "not-compatible",
		})

	Assignees = MustTable("assignee", Unassigned,
		[]string{Unassigned, "kim", "patrick", "lina"},
		map[string]string{
			"Kim":     "kim",
			"Patrick": "patrick",
			"Lina":    "lina",
		})

	Installers = MustTable("installer", Unassigned,
		[]string{Unassigned, "angel", "brian", "luis"},
		map[string]string{
			"Angel": "angel",
			"Brian": "brian",
			"Luis":  "luis",
		})

	ProductTypes = MustTable("product_type", "sample_booklet_only",
		[]string{"sample_booklet_only", "demo_kit_and_sample_booklet", "trial_kit", "demo_kit_only"},
		map[string]string{
			"Sample Booklet Only":         "sample_booklet_only",
			"Demo Kit and Sample Booklet": "demo_kit_and_sample_booklet",
			"Trial Kit":                   "trial_kit",
			"Demo Kit Only":               "demo_kit_only",
		})

	BookletStatuses = MustTable("booklet_status", "pending",
		[]string{"pending", "shipped", "delivered"},
		map[string]string{
			"Pending":   "pending",
			"Shipped":   "shipped",
			"Delivered": "delivered",
		})
)

var vocabularies = map[string]*Table{
	LeadOrigins.Name():     LeadOrigins,
	LeadStatuses.Name():    LeadStatuses,
	Assignees.Name():       Assignees,
	Installers.Name():      Installers,
	ProductTypes.Name():    ProductTypes,
	BookletStatuses.Name(): BookletStatuses,
}

// Vocabulary returns a built-in mapping table by name.
func Vocabulary(name string) (*Table, bool) {
	t, ok := vocabularies[name]
	return t, ok
}

// VocabularyNames lists the built-in mapping tables.
func VocabularyNames() []string {
	names := make([]string, 0, len(vocabularies))
	for name := range vocabularies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
