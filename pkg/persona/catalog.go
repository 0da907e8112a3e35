// Package persona assigns each (user, friend) pair a frozen style identity:
// a template from a fixed catalog plus seeded mutations, capped so no single
// persona "look" can dominate a rolling 24h cohort.
package persona

// Archetype is a template's core personality family. It is the first
// component of the anti-cloning comboKey.
type Archetype string

const (
	ArchetypeWarmListener Archetype = "warm_listener"
	ArchetypeHypeFriend   Archetype = "hype_friend"
	ArchetypeDryWit       Archetype = "dry_wit"
	ArchetypeCuriousNerd  Archetype = "curious_nerd"
	ArchetypeSteadyAnchor Archetype = "steady_anchor"
	ArchetypeFreeSpirit   Archetype = "free_spirit"
	ArchetypeBigSibling   Archetype = "big_sibling"
	ArchetypeQuietPoet    Archetype = "quiet_poet"
)

// SpeechStyle, HumorMode and FriendEnergy are the three mutable style
// categories. Humor and energy also feed the comboKey.
type (
	SpeechStyle  string
	HumorMode    string
	FriendEnergy string
)

const (
	SpeechShortPunchy  SpeechStyle = "short_punchy"
	SpeechFlowing      SpeechStyle = "flowing"
	SpeechBalanced     SpeechStyle = "balanced"
	SpeechPlayfulSlang SpeechStyle = "playful_slang"
)

const (
	HumorDry   HumorMode = "dry"
	HumorSilly HumorMode = "silly"
	HumorPunny HumorMode = "punny"
	HumorWarm  HumorMode = "warm"
	HumorNone  HumorMode = "none"
)

const (
	EnergyChill   FriendEnergy = "chill"
	EnergyBubbly  FriendEnergy = "bubbly"
	EnergySteady  FriendEnergy = "steady"
	EnergyIntense FriendEnergy = "intense"
)

var (
	AllSpeechStyles = []SpeechStyle{SpeechShortPunchy, SpeechFlowing, SpeechBalanced, SpeechPlayfulSlang}
	AllHumorModes   = []HumorMode{HumorDry, HumorSilly, HumorPunny, HumorWarm, HumorNone}
	AllEnergies     = []FriendEnergy{EnergyChill, EnergyBubbly, EnergySteady, EnergyIntense}
	AllArchetypes   = []Archetype{
		ArchetypeWarmListener, ArchetypeHypeFriend, ArchetypeDryWit,
		ArchetypeCuriousNerd, ArchetypeSteadyAnchor, ArchetypeFreeSpirit,
		ArchetypeBigSibling, ArchetypeQuietPoet,
	}
)

// Template is one catalog entry. Defaults are the starting point for the
// seeded mutations; they are not themselves a guaranteed final style.
type Template struct {
	ID           string
	Archetype    Archetype
	SpeechStyle  SpeechStyle
	HumorMode    HumorMode
	FriendEnergy FriendEnergy

	MessageLength    string // short | medium | long
	EmojiFrequency   string // none | rare | frequent
	Directness       string // gentle | balanced | blunt
	LexiconBias      string
	PunctuationQuirk string
}

// Catalog is the fixed 24-entry template set: three variants per archetype.
var Catalog = []Template{
	{ID: "wl-01", Archetype: ArchetypeWarmListener, SpeechStyle: SpeechFlowing, HumorMode: HumorWarm, FriendEnergy: EnergySteady, MessageLength: "medium", EmojiFrequency: "rare", Directness: "gentle", LexiconBias: "everyday", PunctuationQuirk: "soft_ellipsis"},
	{ID: "wl-02", Archetype: ArchetypeWarmListener, SpeechStyle: SpeechBalanced, HumorMode: HumorNone, FriendEnergy: EnergyChill, MessageLength: "medium", EmojiFrequency: "none", Directness: "gentle", LexiconBias: "plain", PunctuationQuirk: "none"},
	{ID: "wl-03", Archetype: ArchetypeWarmListener, SpeechStyle: SpeechFlowing, HumorMode: HumorWarm, FriendEnergy: EnergyBubbly, MessageLength: "long", EmojiFrequency: "frequent", Directness: "gentle", LexiconBias: "affectionate", PunctuationQuirk: "double_tilde"},
	{ID: "hf-01", Archetype: ArchetypeHypeFriend, SpeechStyle: SpeechShortPunchy, HumorMode: HumorSilly, FriendEnergy: EnergyIntense, MessageLength: "short", EmojiFrequency: "frequent", Directness: "blunt", LexiconBias: "slang", PunctuationQuirk: "exclaim_stack"},
	{ID: "hf-02", Archetype: ArchetypeHypeFriend, SpeechStyle: SpeechPlayfulSlang, HumorMode: HumorSilly, FriendEnergy: EnergyBubbly, MessageLength: "short", EmojiFrequency: "frequent", Directness: "balanced", LexiconBias: "slang", PunctuationQuirk: "caps_burst"},
	{ID: "hf-03", Archetype: ArchetypeHypeFriend, SpeechStyle: SpeechShortPunchy, HumorMode: HumorPunny, FriendEnergy: EnergyIntense, MessageLength: "medium", EmojiFrequency: "rare", Directness: "blunt", LexiconBias: "sporty", PunctuationQuirk: "exclaim_stack"},
	{ID: "dw-01", Archetype: ArchetypeDryWit, SpeechStyle: SpeechShortPunchy, HumorMode: HumorDry, FriendEnergy: EnergyChill, MessageLength: "short", EmojiFrequency: "none", Directness: "blunt", LexiconBias: "deadpan", PunctuationQuirk: "none"},
	{ID: "dw-02", Archetype: ArchetypeDryWit, SpeechStyle: SpeechBalanced, HumorMode: HumorDry, FriendEnergy: EnergySteady, MessageLength: "medium", EmojiFrequency: "rare", Directness: "balanced", LexiconBias: "deadpan", PunctuationQuirk: "single_period"},
	{ID: "dw-03", Archetype: ArchetypeDryWit, SpeechStyle: SpeechShortPunchy, HumorMode: HumorPunny, FriendEnergy: EnergyChill, MessageLength: "short", EmojiFrequency: "none", Directness: "blunt", LexiconBias: "wordplay", PunctuationQuirk: "none"},
	{ID: "cn-01", Archetype: ArchetypeCuriousNerd, SpeechStyle: SpeechFlowing, HumorMode: HumorPunny, FriendEnergy: EnergySteady, MessageLength: "long", EmojiFrequency: "rare", Directness: "balanced", LexiconBias: "technical", PunctuationQuirk: "parenthetical"},
	{ID: "cn-02", Archetype: ArchetypeCuriousNerd, SpeechStyle: SpeechBalanced, HumorMode: HumorDry, FriendEnergy: EnergyChill, MessageLength: "medium", EmojiFrequency: "none", Directness: "balanced", LexiconBias: "technical", PunctuationQuirk: "none"},
	{ID: "cn-03", Archetype: ArchetypeCuriousNerd, SpeechStyle: SpeechFlowing, HumorMode: HumorSilly, FriendEnergy: EnergyBubbly, MessageLength: "long", EmojiFrequency: "frequent", Directness: "gentle", LexiconBias: "geeky", PunctuationQuirk: "double_tilde"},
	{ID: "sa-01", Archetype: ArchetypeSteadyAnchor, SpeechStyle: SpeechBalanced, HumorMode: HumorNone, FriendEnergy: EnergySteady, MessageLength: "medium", EmojiFrequency: "none", Directness: "balanced", LexiconBias: "plain", PunctuationQuirk: "none"},
	{ID: "sa-02", Archetype: ArchetypeSteadyAnchor, SpeechStyle: SpeechFlowing, HumorMode: HumorWarm, FriendEnergy: EnergyChill, MessageLength: "medium", EmojiFrequency: "rare", Directness: "gentle", LexiconBias: "everyday", PunctuationQuirk: "soft_ellipsis"},
	{ID: "sa-03", Archetype: ArchetypeSteadyAnchor, SpeechStyle: SpeechShortPunchy, HumorMode: HumorDry, FriendEnergy: EnergySteady, MessageLength: "short", EmojiFrequency: "none", Directness: "blunt", LexiconBias: "plain", PunctuationQuirk: "single_period"},
	{ID: "fs-01", Archetype: ArchetypeFreeSpirit, SpeechStyle: SpeechPlayfulSlang, HumorMode: HumorSilly, FriendEnergy: EnergyBubbly, MessageLength: "short", EmojiFrequency: "frequent", Directness: "gentle", LexiconBias: "dreamy", PunctuationQuirk: "double_tilde"},
	{ID: "fs-02", Archetype: ArchetypeFreeSpirit, SpeechStyle: SpeechFlowing, HumorMode: HumorWarm, FriendEnergy: EnergyChill, MessageLength: "long", EmojiFrequency: "rare", Directness: "gentle", LexiconBias: "dreamy", PunctuationQuirk: "soft_ellipsis"},
	{ID: "fs-03", Archetype: ArchetypeFreeSpirit, SpeechStyle: SpeechPlayfulSlang, HumorMode: HumorPunny, FriendEnergy: EnergyIntense, MessageLength: "medium", EmojiFrequency: "frequent", Directness: "balanced", LexiconBias: "slang", PunctuationQuirk: "caps_burst"},
	{ID: "bs-01", Archetype: ArchetypeBigSibling, SpeechStyle: SpeechBalanced, HumorMode: HumorWarm, FriendEnergy: EnergySteady, MessageLength: "medium", EmojiFrequency: "rare", Directness: "blunt", LexiconBias: "everyday", PunctuationQuirk: "none"},
	{ID: "bs-02", Archetype: ArchetypeBigSibling, SpeechStyle: SpeechShortPunchy, HumorMode: HumorSilly, FriendEnergy: EnergyIntense, MessageLength: "short", EmojiFrequency: "rare", Directness: "blunt", LexiconBias: "sporty", PunctuationQuirk: "exclaim_stack"},
	{ID: "bs-03", Archetype: ArchetypeBigSibling, SpeechStyle: SpeechFlowing, HumorMode: HumorWarm, FriendEnergy: EnergyChill, MessageLength: "medium", EmojiFrequency: "none", Directness: "balanced", LexiconBias: "everyday", PunctuationQuirk: "none"},
	{ID: "qp-01", Archetype: ArchetypeQuietPoet, SpeechStyle: SpeechFlowing, HumorMode: HumorNone, FriendEnergy: EnergyChill, MessageLength: "long", EmojiFrequency: "none", Directness: "gentle", LexiconBias: "lyrical", PunctuationQuirk: "soft_ellipsis"},
	{ID: "qp-02", Archetype: ArchetypeQuietPoet, SpeechStyle: SpeechBalanced, HumorMode: HumorDry, FriendEnergy: EnergySteady, MessageLength: "medium", EmojiFrequency: "none", Directness: "gentle", LexiconBias: "lyrical", PunctuationQuirk: "single_period"},
	{ID: "qp-03", Archetype: ArchetypeQuietPoet, SpeechStyle: SpeechFlowing, HumorMode: HumorWarm, FriendEnergy: EnergyChill, MessageLength: "long", EmojiFrequency: "rare", Directness: "gentle", LexiconBias: "dreamy", PunctuationQuirk: "soft_ellipsis"},
}

// ComboKey identifies a persona "look" for anti-cloning accounting.
type ComboKey struct {
	Archetype    Archetype
	HumorMode    HumorMode
	FriendEnergy FriendEnergy
}

// String renders the canonical pipe-joined form used in the window log.
func (c ComboKey) String() string {
	return string(c.Archetype) + "|" + string(c.HumorMode) + "|" + string(c.FriendEnergy)
}

// AllComboKeys enumerates the full combo space in catalog declaration order.
func AllComboKeys() []ComboKey {
	out := make([]ComboKey, 0, len(AllArchetypes)*len(AllHumorModes)*len(AllEnergies))
	for _, a := range AllArchetypes {
		for _, h := range AllHumorModes {
			for _, e := range AllEnergies {
				out = append(out, ComboKey{Archetype: a, HumorMode: h, FriendEnergy: e})
			}
		}
	}
	return out
}

func templateByArchetype(a Archetype) Template {
	for _, t := range Catalog {
		if t.Archetype == a {
			return t
		}
	}
	return Catalog[0]
}
