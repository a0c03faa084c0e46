package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"classroll/backend/internal/model"
	"classroll/backend/pkg/calendar"
)

// 自定义校验标签
const (
	attendanceStatusTag  = "attendance_status"
	attendanceStatusText = "{0}必须是 present、absent 或 late 之一"
	calendarDateTag      = "calendar_date"
	calendarDateText     = "{0}必须是 YYYY-MM-DD 格式的日期"
)

var (
	registerOnce sync.Once
	translator   ut.Translator
)

// RegisterValidators 在 gin 的校验引擎上注册自定义标签与中文错误信息，可重复调用
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		zhLocale := zh.New()
		uni := ut.New(zhLocale, zhLocale)
		translator, _ = uni.GetTranslator("zh")
		_ = zh_translations.RegisterDefaultTranslations(v, translator)

		// 错误信息中使用 JSON / 查询参数字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = v.RegisterValidation(attendanceStatusTag, attendanceStatusValidation)
		_ = v.RegisterValidation(calendarDateTag, calendarDateValidation)
		registerTranslation(v, attendanceStatusTag, attendanceStatusText)
		registerTranslation(v, calendarDateTag, calendarDateText)
	})
}

func registerTranslation(v *validator.Validate, tag, text string) {
	_ = v.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func attendanceStatusValidation(fl validator.FieldLevel) bool {
	return model.AttendanceStatus(fl.Field().String()).Valid()
}

func calendarDateValidation(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDate(fl.Field().String())
	return err == nil
}

// validationDetails 把绑定错误转成可读的详情文本
func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if translator != nil {
			msgs = append(msgs, fe.Translate(translator))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
