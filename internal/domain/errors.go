package domain

import "errors"

// ErrInsufficientFunds возвращается, когда списание или стейк превышает баланс.
var ErrInsufficientFunds = errors.New("недостаточно средств на балансе")

// ErrWalletNotFound возвращается, когда кошелёк пользователя ещё не создан.
var ErrWalletNotFound = errors.New("кошелёк не найден")

// ErrUnknownJob возвращается при опросе несуществующей задачи синхронизации.
var ErrUnknownJob = errors.New("задача синхронизации не найдена")

// ErrSyncCooldown возвращается, когда новая синхронизация запрошена до истечения паузы.
var ErrSyncCooldown = errors.New("синхронизация на паузе, попробуйте позже")

// ErrUserExists возвращается при регистрации с уже занятым email.
var ErrUserExists = errors.New("пользователь с таким email уже существует")

// ErrUserNotFound возвращается, когда пользователь не найден.
var ErrUserNotFound = errors.New("пользователь не найден")

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("неверный email или пароль")

// ErrChallengeNotFound возвращается при обращении к неизвестному испытанию.
var ErrChallengeNotFound = errors.New("испытание не найдено")
