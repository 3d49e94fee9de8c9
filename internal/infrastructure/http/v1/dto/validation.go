package dto

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"stockflow/internal/domain/catalog"
)

var registerOnce sync.Once

// RegisterValidators teaches gin's validator about decimal quantities and
// item kinds. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Lets numeric tags such as gt=0 and gte=0 apply to decimals.
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("itemkind", func(fl validator.FieldLevel) bool {
			return catalog.VariantKind(fl.Field().String()).Valid()
		})
	})
}

func decimalValue(field reflect.Value) any {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}
