package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/phone"
)

// StepValidationResult is the ephemeral verdict of one validation pass.
// When IsValid is false, Message is the next rendered assistant message and
// NextStep repeats the current step.
type StepValidationResult struct {
	IsValid  bool
	NextStep Step
	Message  string
	Patch    Metadata
}

// Quantity bounds for a single product line.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// EmailOptOut is the literal token accepting the email-skip branch.
const EmailOptOut = "non"

var (
	namePattern  = regexp.MustCompile(`^[\p{L}][\p{L}'’\-]*$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// deliveryZones maps normalized city names to delivery cost in XOF.
// Out-of-table cities get the default zone cost. Deliberately permissive:
// city validation favors completion over strict geocoding.
var deliveryZones = map[string]int64{
	"dakar":       0,
	"pikine":      1000,
	"guédiawaye":  1000,
	"guediawaye":  1000,
	"rufisque":    1500,
	"thiès":       2000,
	"thies":       2000,
	"mbour":       2500,
	"saint-louis": 3000,
}

const defaultDeliveryCost int64 = 3000

// DeliveryCostFor resolves the delivery cost for a city.
func DeliveryCostFor(city string) int64 {
	if cost, ok := deliveryZones[Normalize(city)]; ok {
		return cost
	}
	return defaultDeliveryCost
}

// Validator applies each step's acceptance rule to raw user input and
// mutates the relevant draft field group on success. It never returns an
// error for user-facing input problems; the corrective message is the
// verdict.
type Validator struct {
	CountryCode string
}

func NewValidator(countryCode string) *Validator {
	return &Validator{CountryCode: countryCode}
}

func (v *Validator) reject(step Step, msg string) StepValidationResult {
	return StepValidationResult{IsValid: false, NextStep: step, Message: msg}
}

func (v *Validator) accept(next Step) StepValidationResult {
	return StepValidationResult{IsValid: true, NextStep: next}
}

// Validate encodes, per step, the acceptance rule and its next-step
// override. Steps with no input rule accept anything and advance on the
// default successor.
func (v *Validator) Validate(step Step, raw string, draft *OrderDraft) StepValidationResult {
	switch step {
	case StepCollectQuantity, StepExpressQuantity:
		return v.validateQuantity(step, raw, draft)
	case StepCollectName, StepExpressName:
		return v.validateName(step, raw, draft)
	case StepCollectPhone, StepExpressContact:
		return v.validatePhone(step, raw, draft)
	case StepCollectCity:
		return v.validateCity(step, raw, draft)
	case StepCollectAddress, StepExpressAddress:
		return v.validateAddress(step, raw, draft)
	case StepCollectEmailOpt:
		return v.validateEmailOpt(raw, draft)
	case StepSelectDelivery:
		return v.validateDelivery(raw, draft)
	case StepCollectNote:
		draft.Note = strings.TrimSpace(raw)
		return v.accept(NextStep(step))
	case StepAddNotesOpt, StepRecommendProducts, StepAddProduct,
		StepConfirmItems, StepConfirmOrder, StepCreateAccountOpt:
		return v.validateBinary(step, raw)
	case StepPaymentMethod, StepExpressPayment:
		return v.validatePaymentMethod(step, raw, draft)
	case StepPostPurchaseSurvey, StepExpressSurvey:
		return v.validateSurvey(step, raw)
	}
	return v.accept(NextStep(step))
}

func (v *Validator) validateQuantity(step Step, raw string, draft *OrderDraft) StepValidationResult {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return v.reject(step, "Veuillez indiquer un nombre, par exemple 1, 2 ou 3.")
	}
	if qty < MinQuantity || qty > MaxQuantity {
		return v.reject(step, fmt.Sprintf("La quantité doit être entre %d et %d. Combien d'exemplaires souhaitez-vous ?", MinQuantity, MaxQuantity))
	}
	draft.SetQuantity(qty)
	return v.accept(NextStep(step))
}

func (v *Validator) validateName(step Step, raw string, draft *OrderDraft) StepValidationResult {
	tokens := strings.Fields(strings.TrimSpace(raw))
	if len(tokens) < 2 {
		return v.reject(step, "Veuillez indiquer votre prénom et votre nom, par exemple : Awa Ndiaye.")
	}
	for _, t := range tokens {
		if !namePattern.MatchString(t) {
			return v.reject(step, "Ce nom contient des caractères invalides. Réessayez avec prénom et nom.")
		}
	}
	draft.Customer.FirstName = tokens[0]
	draft.Customer.LastName = strings.Join(tokens[1:], " ")
	return v.accept(NextStep(step))
}

func (v *Validator) validatePhone(step Step, raw string, draft *OrderDraft) StepValidationResult {
	res := phone.Validate(raw, v.CountryCode)
	if !res.IsValid {
		msg := res.Error
		if msg == "" {
			msg = "numéro de téléphone invalide"
		}
		return v.reject(step, fmt.Sprintf("❌ %s. Réessayez, par exemple +221 77 123 45 67.", msg))
	}
	draft.Customer.Phone = phone.Format(raw, v.CountryCode).International
	return v.accept(NextStep(step))
}

func (v *Validator) validateCity(step Step, raw string, draft *OrderDraft) StepValidationResult {
	city := strings.TrimSpace(raw)
	if len([]rune(city)) < 2 {
		return v.reject(step, "Dans quelle ville habitez-vous ?")
	}
	draft.Customer.City = city
	return v.accept(NextStep(step))
}

func (v *Validator) validateAddress(step Step, raw string, draft *OrderDraft) StepValidationResult {
	addr := strings.TrimSpace(raw)
	if len([]rune(addr)) < 5 {
		return v.reject(step, "Veuillez donner une adresse un peu plus précise (quartier, rue, repère).")
	}
	draft.Customer.Address = addr
	return v.accept(NextStep(step))
}

// validateEmailOpt accepts either the opt-out token or a syntactically
// valid address; the two branch to different next steps.
func (v *Validator) validateEmailOpt(raw string, draft *OrderDraft) StepValidationResult {
	norm := Normalize(raw)
	if norm == EmailOptOut || ClassifyYesNo(raw) == ChoiceNo {
		return v.accept(StepCheckExisting)
	}
	if !emailPattern.MatchString(norm) {
		return v.reject(StepCollectEmailOpt, "Cet email ne semble pas valide. Donnez un email ou répondez \"non\".")
	}
	draft.Customer.Email = norm
	return v.accept(StepSelectDelivery)
}

func (v *Validator) validateDelivery(raw string, draft *OrderDraft) StepValidationResult {
	city := strings.TrimSpace(raw)
	if city == "" {
		city = draft.Customer.City
	}
	draft.SetDeliveryCost(DeliveryCostFor(city))
	return v.accept(NextStep(StepSelectDelivery))
}

// validateBinary resolves every yes/no style step through the shared
// classifier, with per-step next-step overrides for the "no" branch.
func (v *Validator) validateBinary(step Step, raw string) StepValidationResult {
	choice := ClassifyYesNo(raw)
	if choice == ChoiceUnmatched {
		return v.reject(step, "Répondez par Oui ou Non 🙂")
	}
	switch step {
	case StepAddNotesOpt:
		if choice == ChoiceNo {
			return v.accept(StepRecommendProducts)
		}
		return v.accept(StepCollectNote)
	case StepRecommendProducts:
		if choice == ChoiceNo {
			return v.accept(StepConfirmItems)
		}
		return v.accept(StepAddProduct)
	case StepAddProduct:
		if choice == ChoiceYes {
			// add-another-item loop
			return v.accept(StepCollectQuantity)
		}
		return v.accept(StepConfirmItems)
	case StepConfirmItems:
		if choice == ChoiceNo {
			return v.accept(StepModifyOrder)
		}
		return v.accept(StepOrderSummary)
	case StepConfirmOrder:
		if choice == ChoiceNo {
			return v.accept(StepModifyOrder)
		}
		return v.accept(StepCreateAccountOpt)
	case StepCreateAccountOpt:
		return v.accept(StepPaymentMethod)
	}
	return v.accept(NextStep(step))
}

func (v *Validator) validatePaymentMethod(step Step, raw string, draft *OrderDraft) StepValidationResult {
	provider := ClassifyProvider(raw)
	if provider == "" {
		return StepValidationResult{
			IsValid:  false,
			NextStep: step,
			Message:  "Quel moyen de paiement préférez-vous ?",
		}
	}
	draft.PaymentMethod = provider
	return v.accept(NextStep(step))
}

func (v *Validator) validateSurvey(step Step, raw string) StepValidationResult {
	rating, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || rating < 1 || rating > 5 {
		return v.reject(step, "Notez votre expérience de 1 à 5 ⭐")
	}
	patch := Metadata{Flags: map[string]any{"surveyRating": rating}}
	return StepValidationResult{IsValid: true, NextStep: NextStep(step), Patch: patch}
}
