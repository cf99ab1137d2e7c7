package model

// Patch is a partial condition update. A nil field means "not mentioned"
// and never erases an existing value.
type Patch struct {
	Location    *string           `json:"location,omitempty"`
	FoodType    *string           `json:"food_type,omitempty"`
	Purpose     *string           `json:"purpose,omitempty"`
	Mood        *string           `json:"mood,omitempty"`
	Constraints *ConstraintsPatch `json:"constraints,omitempty"`
	Meta        *MetaPatch        `json:"meta,omitempty"`

	// Out-of-band signals; consumed by the driver, never stored.
	Diversify   bool `json:"-"`
	ExcludeLast bool `json:"-"`
}

type ConstraintsPatch struct {
	CannotEat      []string `json:"cannot_eat,omitempty"`
	AvoidRecent    []string `json:"avoid_recent,omitempty"`
	NeedParking    *bool    `json:"need_parking,omitempty"`
	AvoidFranchise *bool    `json:"avoid_franchise,omitempty"`
}

type MetaPatch struct {
	ContextMode *ContextMode      `json:"context_mode,omitempty"`
	PeopleCount *int              `json:"people_count,omitempty"`
	BudgetTier  *BudgetTier       `json:"budget_tier,omitempty"`
	PlaceType   *PlaceType        `json:"place_type,omitempty"`
	FoodClass   *FoodClass        `json:"food_class,omitempty"`
	FastMode    *bool             `json:"fast_mode,omitempty"`
	Answers     map[string]string `json:"answers,omitempty"`
	Common      *CommonPatch      `json:"common,omitempty"`
}

type CommonPatch struct {
	CannotEatDone    *bool          `json:"cannot_eat_done,omitempty"`
	AlcoholLevel     *AlcoholLevel  `json:"alcohol_level,omitempty"`
	AlcoholPlan      *AlcoholPlan   `json:"alcohol_plan,omitempty"`
	AlcoholType      *AlcoholType   `json:"alcohol_type,omitempty"`
	Transport        *Transport     `json:"transport,omitempty"`
	WalkLimitMinutes *int           `json:"walk_limit_minutes,omitempty"`
	SensitivityLevel *int           `json:"sensitivity_level,omitempty"`
	FocusPriority    *FocusPriority `json:"focus_priority,omitempty"`
	StayDuration     *StayDuration  `json:"stay_duration,omitempty"`
	SearchRelax      *int           `json:"search_relax,omitempty"`
	CenterName       *string        `json:"center_name,omitempty"`
}

// Empty reports whether the patch carries no condition fields and no signals.
func (p Patch) Empty() bool {
	return p.Location == nil && p.FoodType == nil && p.Purpose == nil && p.Mood == nil &&
		p.Constraints == nil && p.Meta == nil && !p.Diversify && !p.ExcludeLast
}
