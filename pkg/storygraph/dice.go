package storygraph

import (
	"math/rand/v2"

	"adventure-server/shared/models"
)

// DiceSides is the number of faces of the die used for gated choices.
const DiceSides = 6

// Roller draws a die result in [1, DiceSides].
type Roller interface {
	Roll() int
}

// RandomRoller draws uniformly distributed results.
type RandomRoller struct{}

func (RandomRoller) Roll() int {
	return rand.IntN(DiceSides) + 1
}

// ValidRoll reports whether roll is a face of the die.
func ValidRoll(roll int) bool {
	return roll >= 1 && roll <= DiceSides
}

// CheckDice decides whether roll satisfies the requirement of choice.
// A choice without a requirement is always satisfied and ignores roll.
func CheckDice(choice *models.Choice, roll *int) error {
	if choice.DiceRequirement == nil {
		return nil
	}
	if roll == nil {
		return models.ErrDiceNotRolled
	}
	if !ValidRoll(*roll) {
		return models.ErrInvalidDiceRoll
	}
	if *roll < *choice.DiceRequirement {
		return models.ErrDiceTooLow
	}
	return nil
}
