package app

// MinPlayersToStartGame defines the minimum number of players required to start a game.
// Configs asking for fewer are raised to this floor.
const MinPlayersToStartGame = 2
