package model

// ================ Enumerations ================

type ContextMode string

const (
	ModeNone          ContextMode = "none"
	ModeCompanyDinner ContextMode = "company-dinner"
	ModeFriends       ContextMode = "friends"
	ModeGroup         ContextMode = "group"
	ModeDating        ContextMode = "dating"
	ModeSolo          ContextMode = "solo"
	ModeFamily        ContextMode = "family"
)

type BudgetTier string

const (
	BudgetNoPreference BudgetTier = "no-preference"
	BudgetValue        BudgetTier = "value"
	BudgetNormal       BudgetTier = "normal"
	BudgetSpecial      BudgetTier = "special"
)

type PlaceType string

const (
	PlaceAuto  PlaceType = "auto"
	PlaceMeal  PlaceType = "meal"
	PlaceDrink PlaceType = "drink"
	PlaceCafe  PlaceType = "cafe"
)

type FoodClass string

const (
	FoodAuto     FoodClass = "auto"
	FoodKorean   FoodClass = "korean"
	FoodChinese  FoodClass = "chinese"
	FoodJapanese FoodClass = "japanese"
	FoodWestern  FoodClass = "western"
)

// AlcoholLevel is empty until answered.
type AlcoholLevel string

const (
	AlcoholNone  AlcoholLevel = "none"
	AlcoholLight AlcoholLevel = "light"
	AlcoholHeavy AlcoholLevel = "heavy"
)

type AlcoholPlan string

const (
	PlanSingleVenue AlcoholPlan = "single-venue"
	PlanSplit       AlcoholPlan = "split"
	PlanUnsure      AlcoholPlan = "unsure"
)

type AlcoholType string

const (
	DrinkSoju         AlcoholType = "soju"
	DrinkBeer         AlcoholType = "beer"
	DrinkWine         AlcoholType = "wine"
	DrinkNoPreference AlcoholType = "no-preference"
)

type Transport string

const (
	TransportCar          Transport = "car"
	TransportTransit      Transport = "transit"
	TransportNoPreference Transport = "no-preference"
)

type FocusPriority string

const (
	FocusConversation FocusPriority = "conversation"
	FocusFood         FocusPriority = "food"
	FocusBalanced     FocusPriority = "balanced"
)

type StayDuration string

const (
	StayQuick    StayDuration = "quick"
	StayModerate StayDuration = "moderate"
	StayLong     StayDuration = "long"
)

// ================ Bounds and defaults ================

const (
	DefaultPeopleCount      = 2
	DefaultWalkLimitMinutes = 20
	MinWalkLimitMinutes     = 5
	MaxWalkLimitMinutes     = 60
	MinSensitivityLevel     = 1
	MaxSensitivityLevel     = 4
	MaxSearchRelax          = 3
	MaxCannotEatTokens      = 6
)

// ================ Condition ================

// Condition is everything learned about one recommendation request.
// Pointer fields are unset when nil; enum strings are unset when empty.
type Condition struct {
	Location    *string     `json:"location"`
	FoodType    *string     `json:"food_type"`
	Purpose     *string     `json:"purpose"`
	Mood        *string     `json:"mood"`
	Constraints Constraints `json:"constraints"`
	Meta        Meta        `json:"meta"`
}

type Constraints struct {
	CannotEat      []string `json:"cannot_eat"`
	AvoidRecent    []string `json:"avoid_recent"`
	NeedParking    *bool    `json:"need_parking"`
	AvoidFranchise bool     `json:"avoid_franchise"`
}

type Meta struct {
	ContextMode ContextMode       `json:"context_mode"`
	PeopleCount int               `json:"people_count"`
	BudgetTier  BudgetTier        `json:"budget_tier"`
	PlaceType   PlaceType         `json:"place_type"`
	FoodClass   FoodClass         `json:"food_class"`
	FastMode    bool              `json:"fast_mode"`
	Answers     map[string]string `json:"answers"`
	Common      Common            `json:"common"`
}

// Common holds the shared question slots.
type Common struct {
	CannotEatDone    bool          `json:"cannot_eat_done"`
	AlcoholLevel     AlcoholLevel  `json:"alcohol_level,omitempty"`
	AlcoholPlan      AlcoholPlan   `json:"alcohol_plan,omitempty"`
	AlcoholType      AlcoholType   `json:"alcohol_type,omitempty"`
	Transport        Transport     `json:"transport,omitempty"`
	WalkLimitMinutes *int          `json:"walk_limit_minutes"`
	SensitivityLevel int           `json:"sensitivity_level,omitempty"`
	FocusPriority    FocusPriority `json:"focus_priority,omitempty"`
	StayDuration     StayDuration  `json:"stay_duration,omitempty"`
	SearchRelax      int           `json:"search_relax"`
	CenterName       string        `json:"center_name,omitempty"`
}

// LocationText returns the location or "" when unset.
func (c Condition) LocationText() string {
	if c.Location == nil {
		return ""
	}
	return *c.Location
}

// FoodTypeText returns the food type or "" when unset.
func (c Condition) FoodTypeText() string {
	if c.FoodType == nil {
		return ""
	}
	return *c.FoodType
}

// EffectiveWalkLimit is the walk limit consumers should use; the default
// applies while the question is still unanswered.
func (c Common) EffectiveWalkLimit() int {
	if c.WalkLimitMinutes == nil {
		return DefaultWalkLimitMinutes
	}
	return *c.WalkLimitMinutes
}

// Drinking reports whether any alcohol is planned.
func (c Common) Drinking() bool {
	return c.AlcoholLevel == AlcoholLight || c.AlcoholLevel == AlcoholHeavy
}

// SplitRounds reports whether the evening is split into 1차/2차.
func (c Common) SplitRounds() bool {
	return c.AlcoholLevel == AlcoholHeavy && c.AlcoholPlan == PlanSplit
}

// WantsParking reports whether parking should be favoured.
func (c Condition) WantsParking() bool {
	if c.Meta.Common.Transport == TransportCar {
		return true
	}
	return c.Constraints.NeedParking != nil && *c.Constraints.NeedParking
}

// ================ Enum validation ================

func (m ContextMode) Valid() bool {
	switch m {
	case ModeNone, ModeCompanyDinner, ModeFriends, ModeGroup, ModeDating, ModeSolo, ModeFamily:
		return true
	}
	return false
}

func (b BudgetTier) Valid() bool {
	switch b {
	case BudgetNoPreference, BudgetValue, BudgetNormal, BudgetSpecial:
		return true
	}
	return false
}

func (p PlaceType) Valid() bool {
	switch p {
	case PlaceAuto, PlaceMeal, PlaceDrink, PlaceCafe:
		return true
	}
	return false
}

func (f FoodClass) Valid() bool {
	switch f {
	case FoodAuto, FoodKorean, FoodChinese, FoodJapanese, FoodWestern:
		return true
	}
	return false
}

func (a AlcoholLevel) Valid() bool {
	switch a {
	case AlcoholNone, AlcoholLight, AlcoholHeavy:
		return true
	}
	return false
}

func (a AlcoholPlan) Valid() bool {
	switch a {
	case PlanSingleVenue, PlanSplit, PlanUnsure:
		return true
	}
	return false
}

func (a AlcoholType) Valid() bool {
	switch a {
	case DrinkSoju, DrinkBeer, DrinkWine, DrinkNoPreference:
		return true
	}
	return false
}

func (t Transport) Valid() bool {
	switch t {
	case TransportCar, TransportTransit, TransportNoPreference:
		return true
	}
	return false
}

func (f FocusPriority) Valid() bool {
	switch f {
	case FocusConversation, FocusFood, FocusBalanced:
		return true
	}
	return false
}

func (s StayDuration) Valid() bool {
	switch s {
	case StayQuick, StayModerate, StayLong:
		return true
	}
	return false
}
