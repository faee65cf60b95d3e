package api

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request packets:
//
//	civildate   YYYY-MM-DD calendar date
//	prayertype  one of the five prayer names
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		if err = v.RegisterValidation("civildate", validateCivilDate); err != nil {
			return
		}
		err = v.RegisterValidation("prayertype", validatePrayerType)
	})
	return err
}

func validateCivilDate(fl validator.FieldLevel) bool {
	_, err := model.ParseCivilDate(fl.Field().String())
	return err == nil
}

func validatePrayerType(fl validator.FieldLevel) bool {
	_, err := model.ParsePrayerType(fl.Field().String())
	return err == nil
}
