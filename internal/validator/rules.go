package validator

import (
	"log"

	"metallvector_backend/internal/inn"
	"metallvector_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует все кастомные функции валидации в
// переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка регистрации правила - ошибка времени запуска,
			// приложение не должно стартовать
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'inn': 10 или 12 цифр. Контрольные числа здесь НЕ проверяются -
	// на входе /api/analyze достаточно формата.
	mustRegister("inn", validateINNFormat)

	// 'plan': закрытый enum покупаемых тарифов
	mustRegister("plan", validatePurchasablePlan)
}

func validateINNFormat(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		// Пустое значение пропускаем: сочетание с required решает DTO
		return true
	}
	return inn.ValidFormat(value)
}

func validatePurchasablePlan(fl validator.FieldLevel) bool {
	p := models.Plan(fl.Field().String())
	return p.Valid() && p != models.PlanTrial
}
