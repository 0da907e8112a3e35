// Package topic scores user text against a fixed, enumerated topic set using
// static bilingual keyword tables. Matching is deterministic: no model, no
// randomness, no I/O.
package topic

// ID identifies one topic in the closed catalog.
type ID string

const (
	Politics        ID = "politics"
	Religion        ID = "religion"
	SexualContent   ID = "sexual_content"
	SexualJokes     ID = "sexual_jokes"
	MentalHealth    ID = "mental_health"
	SelfHarm        ID = "self_harm"
	Substances      ID = "substances"
	Gambling        ID = "gambling"
	Violence        ID = "violence"
	IllegalActivity ID = "illegal_activity"
	HateHarassment  ID = "hate_harassment"
	Medical         ID = "medical"
	PersonalFinance ID = "personal_finance"
	Relationships   ID = "relationships"
	Family          ID = "family"
	WorkSchool      ID = "work_school"
	Travel          ID = "travel"
	Entertainment   ID = "entertainment"
	TechGaming      ID = "tech_gaming"
)

// All lists every topic in canonical match order. Matching iterates this
// slice so results have a stable order run to run.
var All = []ID{
	Politics,
	Religion,
	SexualContent,
	SexualJokes,
	MentalHealth,
	SelfHarm,
	Substances,
	Gambling,
	Violence,
	IllegalActivity,
	HateHarassment,
	Medical,
	PersonalFinance,
	Relationships,
	Family,
	WorkSchool,
	Travel,
	Entertainment,
	TechGaming,
}
