package email

// HTML-шаблоны писем. Подстановка через fmt.Sprintf: ссылки и цифры
// известны на момент отправки, полноценный шаблонизатор тут избыточен.

const verificationTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #1a1a1a;">
  <h2>Добро пожаловать в Металл Вектор!</h2>
  <p>Для завершения регистрации подтвердите ваш email:</p>
  <p><a href="%s" style="display:inline-block;padding:12px 24px;background:#1f6feb;color:#fff;text-decoration:none;border-radius:6px;">Подтвердить email</a></p>
  <p>Или перейдите по ссылке: <a href="%s">ссылка</a></p>
  <p>Ссылка действительна 24 часа. Если вы не регистрировались — просто проигнорируйте это письмо.</p>
</body>
</html>`

const passwordResetTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #1a1a1a;">
  <h2>Восстановление пароля</h2>
  <p>Мы получили запрос на смену пароля вашего аккаунта.</p>
  <p><a href="%s" style="display:inline-block;padding:12px 24px;background:#1f6feb;color:#fff;text-decoration:none;border-radius:6px;">Задать новый пароль</a></p>
  <p>Или перейдите по ссылке: <a href="%s">ссылка</a></p>
  <p>Ссылка действительна 1 час. Если это были не вы — пароль менять не нужно.</p>
</body>
</html>`

const paymentReceiptTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #1a1a1a;">
  <h2>Оплата получена</h2>
  <p>Тариф «%s» активирован.</p>
  <p>Сумма: %.2f ₽</p>
  <p>Доступно отчетов: %d</p>
  <p>Спасибо, что работаете с Металл Вектор!</p>
</body>
</html>`
